package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.MaxWorkers != 1 {
		t.Errorf("Expected MaxWorkers to be 1, got %d", opts.MaxWorkers)
	}
}

func TestProcessParallelEmpty(t *testing.T) {
	results, errs := ProcessParallel(context.Background(), []string{}, DefaultOptions(),
		func(ctx context.Context, i int, slug string) (string, error) { return slug, nil })
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("Expected empty output, got %v %v", results, errs)
	}
}

func TestProcessParallelKeepsOrder(t *testing.T) {
	slugs := []string{"machine-learning", "python", "deep-learning-specialization", "sql"}
	results, errs := ProcessParallel(context.Background(), slugs, ParallelOptions{MaxWorkers: 3},
		func(ctx context.Context, i int, slug string) (int, error) {
			time.Sleep(time.Duration(len(slugs)-i) * time.Millisecond)
			return len(slug), nil
		})

	for i, s := range slugs {
		if results[i] != len(s) {
			t.Errorf("results[%d] = %d, want %d", i, results[i], len(s))
		}
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v", i, errs[i])
		}
	}
}

func TestProcessParallelErrorsByIndex(t *testing.T) {
	boom := errors.New("boom")
	_, errs := ProcessParallel(context.Background(), []int{1, 2, 3, 4}, ParallelOptions{MaxWorkers: 2},
		func(ctx context.Context, i int, n int) (int, error) {
			if n%2 == 0 {
				return 0, boom
			}
			return n, nil
		})

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("Expected odd items to succeed, got %v", errs)
	}
	if !errors.Is(errs[1], boom) || !errors.Is(errs[3], boom) {
		t.Errorf("Expected even items to fail, got %v", errs)
	}

	first, n := FirstError(errs)
	if !errors.Is(first, boom) || n != 2 {
		t.Errorf("FirstError = %v, %d", first, n)
	}
}

func TestProcessParallelBoundsWorkers(t *testing.T) {
	var running, peak int32
	items := make([]int, 20)
	ProcessParallel(context.Background(), items, ParallelOptions{MaxWorkers: 3},
		func(ctx context.Context, i int, _ int) (struct{}, error) {
			cur := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		})

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent workers, saw %d", peak)
	}
}

func TestProcessParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, errs := ProcessParallel(ctx, []int{1, 2, 3}, DefaultOptions(),
		func(ctx context.Context, i int, n int) (int, error) {
			calls++
			return n, nil
		})

	if calls != 0 {
		t.Errorf("Expected no calls after cancel, got %d", calls)
	}
	for i, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("errs[%d] = %v, want context.Canceled", i, err)
		}
	}
}
