package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task represents a unit of work to be processed by the pool.
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
	// Done is false for inputs skipped after cancellation.
	Done bool
}

// ProcessFunc is the function signature for processing a single task.
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Pool is a generic worker pool with configurable concurrency.
type Pool[T any, R any] struct {
	workers int
	process ProcessFunc[T, R]
}

// NewPool creates a new worker pool.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{
		workers: workers,
		process: fn,
	}
}

// Execute runs all inputs through the worker pool and returns results in
// input order. After ctx is cancelled no new input is started; tasks
// already running finish.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	results := make([]Task[T, R], len(inputs))
	for i, in := range inputs {
		results[i].Input = in
	}
	inputCh := make(chan int)

	var wg sync.WaitGroup

	// Start workers.
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range inputCh {
				result, err := p.process(ctx, inputs[idx])
				results[idx].Result = result
				results[idx].Err = err
				results[idx].Done = true
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Int("index", idx).Msg("Task failed")
				}
			}
		}(w)
	}

	// Send inputs.
send:
	for i := range inputs {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case inputCh <- i:
				continue
			}
		}
		log.Warn().Int("remaining", len(inputs)-i).Msg("Cancelled, skipping remaining tasks")
		break send
	}
	close(inputCh)

	// Wait for all workers to finish.
	wg.Wait()
	return results
}
