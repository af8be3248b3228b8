package sim

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Factory builds an independent simulator for run i. Each run must own its
// model, since actuators cache per-evaluation values.
type Factory func(i int) (*Simulator, Config, error)

// Ensemble runs a fixed number of independent simulations on a bounded
// set of goroutines.
type Ensemble struct {
	build   Factory
	runs    int
	workers int
}

func NewEnsemble(factory Factory, numRuns int) *Ensemble {
	return &Ensemble{build: factory, runs: numRuns, workers: runtime.GOMAXPROCS(0)}
}

// SetWorkers caps concurrent runs; n < 1 means one.
func (e *Ensemble) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = n
}

// Run returns results in run order. The first failing run cancels the
// rest and its error is returned, tagged with the run index.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]*Result, e.runs)
	var (
		mu    sync.Mutex
		first error
		wg    sync.WaitGroup
	)
	fail := func(i int, err error) {
		mu.Lock()
		if first == nil {
			first = fmt.Errorf("run %d: %w", i, err)
			cancel()
		}
		mu.Unlock()
	}

	jobs := make(chan int)
	for w := 0; w < min(e.workers, e.runs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s, cfg, err := e.build(i)
				if err == nil {
					out[i], err = s.Run(ctx, cfg)
				}
				if err != nil {
					fail(i, err)
				}
			}
		}()
	}

feed:
	for i := 0; i < e.runs; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if first != nil {
		return nil, first
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
