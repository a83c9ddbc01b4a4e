// Package parallel provides the worker pool used for data-parallel
// evaluation.
//
// Cutoff sweeps over large prediction sets are embarrassingly parallel:
// each cutoff's confusion counts depend only on the shared, read-only
// prediction slice. The pool fans items out to a fixed number of
// goroutines and fans results back in, optionally preserving order.
//
// Workers never mutate their inputs; callers pass read-only slices and
// receive freshly allocated result slices.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(numWorkers int) *WorkerPool {
	return NewWorkerPoolWithContext(context.Background(), numWorkers)
}

// NewWorkerPoolWithContext creates a worker pool that stops handing out
// work once parent is cancelled.
func NewWorkerPoolWithContext(parent context.Context, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Workers returns the number of goroutines the pool runs.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Err reports why the pool stopped early, if it did.
func (wp *WorkerPool) Err() error {
	return wp.ctx.Err()
}

// Process executes work items in parallel using fan-out/fan-in pattern.
// Results keep the order of items; see ProcessIndexed for cancellation.
func Process[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(T) R,
) []R {
	return ProcessIndexed(wp, items, func(_ int, item T) R {
		return worker(item)
	})
}

// ProcessIndexed executes work items in parallel while preserving order.
// If the pool's context is cancelled part way, unprocessed slots hold the
// zero value of R and wp.Err() is non-nil.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	if len(items) == 0 {
		return nil
	}

	// Channel for input items with index
	itemCh := make(chan indexedItem[T], len(items))

	// Channel for results with index
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: worker(item.index, item.value),
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
	}

	return results
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
}
