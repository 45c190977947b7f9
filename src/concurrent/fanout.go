package concurrent

import (
	"context"
	"sync"
)

// ParallelMap runs fn over every item concurrently and returns the results
// in item order. It always waits for every invocation to settle, so callers
// get a complete result set even when some invocations fail; per-item
// errors are the caller's to encode into R.
func ParallelMap[T, R any](ctx context.Context, items []T, fn func(context.Context, T) R, maxConcurrency int) []R {
	if len(items) == 0 {
		return nil
	}
	if maxConcurrency <= 0 || maxConcurrency > len(items) {
		maxConcurrency = len(items)
	}

	results := make([]R, len(items))
	sem := make(chan struct{}, maxConcurrency)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = fn(ctx, val)
		}(i, item)
	}
	wg.Wait()

	return results
}
