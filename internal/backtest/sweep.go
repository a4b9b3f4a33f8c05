package backtest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mchia/Backtest-Tool/internal/domain"
	"github.com/mchia/Backtest-Tool/internal/strategy"
)

// Job is one independent simulation in a parameter sweep: a price series,
// a configured strategy, and portfolio parameters. Jobs share no mutable
// state, so a sweep needs no locking around the runs themselves.
type Job struct {
	Symbol   string
	Bars     []domain.Bar
	Strategy strategy.Strategy
	Config   Config
}

// JobResult pairs a sweep job with its outcome. Err is set when the job's
// configuration or series was rejected, or when the sweep was cancelled
// before the job started.
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

// Sweep runs every job across a bounded worker pool and returns results in
// job order. Cancellation is coarse-grained: the context is checked between
// runs, never mid-run, since a single historical replay is finite.
func Sweep(ctx context.Context, jobs []Job, workers int) []JobResult {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	log := slog.Default().With("component", "sweep")
	results := make([]JobResult, len(jobs))

	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				job := jobs[idx]
				results[idx].Job = job

				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					continue
				}

				sim, err := NewSimulator(job.Config)
				if err != nil {
					results[idx].Err = err
					continue
				}
				res, err := sim.Run(ctx, job.Bars, job.Strategy)
				if err != nil {
					log.Warn("sweep job failed",
						"symbol", job.Symbol,
						"strategy", job.Strategy.Name(),
						"err", err,
					)
					results[idx].Err = err
					continue
				}
				results[idx].Result = res
			}
		}()
	}
	wg.Wait()

	return results
}
