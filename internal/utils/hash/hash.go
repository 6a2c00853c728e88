// Package hash computes the content hash stored on Photo.file_hash.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

const (
	// quickChunkSize is how much of the head and tail a quick hash reads.
	quickChunkSize = 1 * 1024 * 1024

	// quickThreshold is the file size above which File switches to the
	// quick strategy. Hashing a multi-gigabyte video end to end would
	// dominate the per-photo job's runtime for no dedup benefit.
	quickThreshold = 100 * 1024 * 1024
)

// File returns the hex BLAKE3 hash of the file at path. Files larger than
// quickThreshold are hashed from their first and last megabyte plus the
// byte size, which is stable for the dedup-by-hash use this system has.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat for hashing: %w", err)
	}
	if stat.Size() > quickThreshold {
		return quick(f, stat.Size())
	}
	return Reader(f)
}

// Reader hashes everything the reader yields.
func Reader(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func quick(f *os.File, size int64) (string, error) {
	h := blake3.New()

	head := make([]byte, quickChunkSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("hash head chunk: %w", err)
	}
	h.Write(head[:n])

	if _, err := f.Seek(-quickChunkSize, io.SeekEnd); err != nil {
		return "", fmt.Errorf("seek tail chunk: %w", err)
	}
	tail := make([]byte, quickChunkSize)
	n, err = io.ReadFull(f, tail)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("hash tail chunk: %w", err)
	}
	h.Write(tail[:n])

	fmt.Fprintf(h, "%d", size)
	return hex.EncodeToString(h.Sum(nil)), nil
}
