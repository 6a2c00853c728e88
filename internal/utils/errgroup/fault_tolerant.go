// Package errgroup provides a fault-tolerant task group: tasks fail
// independently and the caller gets every error, instead of
// first-error-cancels-all semantics. The repair tool's per-meeting sweep is
// the main consumer.
package errgroup

import (
	"sync"
)

// FaultTolerantGroup runs tasks concurrently, bounded by a limit, and
// collects each task's error without cancelling the rest.
type FaultTolerantGroup struct {
	mu    sync.Mutex
	tasks []func() error
	limit int
}

// NewFaultTolerant creates a group. limit bounds how many tasks run at
// once; limit <= 0 means unbounded.
func NewFaultTolerant(limit int) *FaultTolerantGroup {
	return &FaultTolerantGroup{limit: limit}
}

// Go adds a task. Tasks do not start until Wait.
func (g *FaultTolerantGroup) Go(fn func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = append(g.tasks, fn)
}

// Wait runs every task and returns the errors of the tasks that failed, in
// no particular order. A nil slice means everything succeeded.
func (g *FaultTolerantGroup) Wait() []error {
	results := g.WaitWithResults()
	if len(results) == 0 {
		return nil
	}
	errs := make([]error, 0, len(results))
	for _, err := range results {
		errs = append(errs, err)
	}
	return errs
}

// WaitWithResults runs every task and returns a map from task index (in Go
// order) to that task's error, containing only the failures.
func (g *FaultTolerantGroup) WaitWithResults() map[int]error {
	g.mu.Lock()
	tasks := g.tasks
	g.mu.Unlock()

	var sem chan struct{}
	if g.limit > 0 {
		sem = make(chan struct{}, g.limit)
	}

	var wg sync.WaitGroup
	var resMu sync.Mutex
	results := make(map[int]error)

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, fn func() error) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			if err := fn(); err != nil {
				resMu.Lock()
				results[index] = err
				resMu.Unlock()
			}
		}(i, task)
	}
	wg.Wait()

	return results
}
