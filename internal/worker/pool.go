// Package worker fans file reads out to a fixed number of goroutines. The
// handoff lister and the status commands use it to parse many small files
// without serializing on disk latency.
package worker

import (
	"context"
	"runtime"
	"sync"
)

// Result pairs a processed value with its original index to preserve ordering.
type Result[T any] struct {
	Index int
	Item  string
	Value T
	Err   error
}

// Pool runs fn over a list of items with bounded concurrency.
type Pool[T any] struct {
	concurrency int
}

// NewPool creates a worker pool with the given concurrency.
// If concurrency <= 0, defaults to runtime.NumCPU().
func NewPool[T any](concurrency int) *Pool[T] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[T]{concurrency: concurrency}
}

// Process applies fn to every item and returns results in input order.
// Per-item errors are recorded in the result. Once ctx is done, items not
// yet started are skipped with ctx.Err().
func (p *Pool[T]) Process(ctx context.Context, items []string, fn func(context.Context, string) (T, error)) []Result[T] {
	if len(items) == 0 {
		return nil
	}

	workers := min(p.concurrency, len(items))
	results := make([]Result[T], len(items))
	next := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				r := Result[T]{Index: i, Item: items[i]}
				if err := ctx.Err(); err != nil {
					r.Err = err
				} else {
					r.Value, r.Err = fn(ctx, items[i])
				}
				results[i] = r
			}
		}()
	}

	for i := range items {
		next <- i
	}
	close(next)
	wg.Wait()

	return results
}

// Values returns the successful values in input order and the first error.
func Values[T any](results []Result[T]) ([]T, error) {
	var (
		out   []T
		first error
	)
	for _, r := range results {
		if r.Err != nil {
			if first == nil {
				first = r.Err
			}
			continue
		}
		out = append(out, r.Value)
	}
	return out, first
}
