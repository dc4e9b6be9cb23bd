package utils

import (
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog/log"
)

// RunConcurrent applies fn to every item with at most concurrency calls in
// flight, and returns the successful results. A failing (or panicking) item
// is logged and dropped, so the result may be shorter than the input; callers
// must tolerate that. Result order is unspecified: workers race to pull the
// next item as they free up.
func RunConcurrent[T, R any](items []T, concurrency int, fn func(T) (R, error)) []R {
	if len(items) == 0 {
		return []R{}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	wp := workerpool.New(concurrency)

	var mu sync.Mutex
	results := make([]R, 0, len(items))

	for _, item := range items {
		item := item
		wp.Submit(func() {
			res, err := runOne(item, fn)
			if err != nil {
				log.Warn().Err(err).Msg("concurrent task failed, dropping result")
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
	}

	wp.StopWait()
	return results
}

// runOne isolates a single fn call so that a panic in one item cannot take
// down the whole batch.
func runOne[T, R any](item T, fn func(T) (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(item)
}
