package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions bounds a ProcessParallel run.
type ParallelOptions struct {
	// MaxWorkers is the number of items processed at once. 1 keeps the run sequential.
	MaxWorkers int
}

// DefaultOptions processes one item at a time.
func DefaultOptions() ParallelOptions {
	return ParallelOptions{MaxWorkers: 1}
}

// ProcessParallel calls itemFunc for every item using at most opts.MaxWorkers
// goroutines. results[i] and errs[i] belong to items[i]. Items not started
// before ctx is done get ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if maxWorkers > len(items) {
		maxWorkers = len(items)
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	// Each index is written by exactly one worker.
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = itemFunc(ctx, i, items[i])
			}
		}()
	}
	wg.Wait()

	return results, errs
}

// FirstError returns the first non-nil error and how many failed.
func FirstError(errs []error) (error, int) {
	var first error
	n := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		n++
	}
	return first, n
}
