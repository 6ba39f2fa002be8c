// Package pool drains the work queue with a fixed set of concurrent workers.
package pool

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krexdev/krexcheck/internal/probe"
	"github.com/krexdev/krexcheck/internal/queue"
)

// Prober classifies one claimed item.
type Prober interface {
	Probe(ctx context.Context, item queue.Item) probe.Outcome
}

// Recorder receives exactly one outcome per item.
type Recorder interface {
	Record(o probe.Outcome)
}

const MaxConcurrency = 100

type Config struct {
	Concurrency int
	// RequestDelay paces workers between items; each worker sleeps
	// RequestDelay / min(workerIndex+1, 3) to stay desynchronized.
	RequestDelay time.Duration
}

type Pool struct {
	cfg Config
	log *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > MaxConcurrency {
		cfg.Concurrency = MaxConcurrency
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Pool{cfg: cfg, log: log}
}

// Run spawns the workers and returns once every claimed item's outcome has
// been recorded. Effective concurrency never exceeds the queue size. The
// returned count is the concurrency actually used.
func (p *Pool) Run(ctx context.Context, q *queue.Queue, prober Prober, rec Recorder) int {
	workers := p.cfg.Concurrency
	if total := q.Total(); workers > total {
		workers = total
	}
	if workers == 0 {
		return 0
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(workerIndex int) {
			defer wg.Done()
			p.worker(ctx, workerIndex, q, prober, rec)
		}(i)
	}
	wg.Wait()

	if !q.ValidateCompletion() {
		p.log.Warnf("completion mismatch: %d of %d items accounted for", q.CompletedCount(), q.Total())
	}

	return workers
}

// worker loops claim -> probe -> markCompleted -> record until the queue is
// drained or the context is cancelled. Claims never block, so the loop
// terminates deterministically.
func (p *Pool) worker(ctx context.Context, workerIndex int, q *queue.Queue, prober Prober, rec Recorder) {
	pacing := p.cfg.RequestDelay / time.Duration(min(workerIndex+1, 3))

	for {
		if ctx.Err() != nil {
			return // stop issuing new work; in-flight items already finished
		}

		item, ok := q.ClaimNext()
		if !ok {
			return
		}

		outcome := p.probeSafely(ctx, prober, item)

		q.MarkCompleted(item.Index)
		rec.Record(outcome)

		if pacing > 0 && q.Remaining() > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pacing):
			}
		}
	}
}

// probeSafely converts any unexpected panic into a counted error outcome so
// a single malformed item can never abort the run.
func (p *Pool) probeSafely(ctx context.Context, prober Prober, item queue.Item) (out probe.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("worker panic on item %d: %v", item.Index, r)
			out = probe.Outcome{
				Index:   item.Index,
				Payload: item.Payload,
				Kind:    probe.OutcomeError,
				Err:     "internal error",
			}
		}
	}()
	return prober.Probe(ctx, item)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
