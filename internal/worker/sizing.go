package worker

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// memoryPerJob is a rough per-job working-set budget: a decoded image plus
// the bimg output buffer and exiftool overhead.
const memoryPerJob = 512 * 1024 * 1024

// AutoConcurrency sizes the default queue's worker pool from available cores
// and memory when WORKER_CONCURRENCY is not set. Thumbnailing holds whole
// images in memory, so on small hosts memory is the binding constraint, not
// CPU.
func AutoConcurrency() int {
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}

	limit := cores
	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		byMemory := int(vm.Available / memoryPerJob)
		if byMemory < limit {
			limit = byMemory
		}
	}
	if limit < 2 {
		limit = 2
	}
	return limit
}
