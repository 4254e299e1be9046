// Package parallel provides chunked worker-pool helpers for embarrassingly
// parallel loops. Workers receive disjoint index ranges and must write only
// to their own slots, so results are independent of the worker count.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits items across up to maxWorkers goroutines and calls fn
// with each worker's half-open range [start, end). maxWorkers <= 0 means
// one worker per CPU core.
func Parallelize(items, maxWorkers int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := maxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so every item is covered.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and parallelizes otherwise. Small loops
// are not worth the goroutine overhead.
func ParallelizeWithThreshold(items, threshold, maxWorkers int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, maxWorkers, fn)
}
