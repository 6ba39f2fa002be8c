// Package stats aggregates run counters. All mutation is atomic, so any
// component may read a snapshot at any time for progress display.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/krexdev/krexcheck/internal/probe"
)

// Snapshot is a consistent point-in-time copy of the counters.
type Snapshot struct {
	Checked     int64
	Valid       int64
	Invalid     int64
	Errors      int64
	RateLimited int64
	Nitro       int64
	Boosts      int64
	Payments    int64

	StartTime time.Time
}

// Elapsed is the wall-clock duration since the run began.
func (s Snapshot) Elapsed() time.Duration { return time.Since(s.StartTime) }

// Aggregator owns the counters. Constructed once per run and shared by every
// worker; never ambient or global.
type Aggregator struct {
	checked     atomic.Int64
	valid       atomic.Int64
	invalid     atomic.Int64
	errs        atomic.Int64
	rateLimited atomic.Int64
	nitro       atomic.Int64
	boosts      atomic.Int64
	payments    atomic.Int64

	startTime time.Time
}

func New() *Aggregator {
	return &Aggregator{startTime: time.Now()}
}

// Record folds one outcome into the counters: checked always, exactly one of
// valid/invalid/errors, plus the valid-only extras.
func (a *Aggregator) Record(o probe.Outcome) {
	a.checked.Add(1)

	switch o.Kind {
	case probe.OutcomeValid:
		a.valid.Add(1)
		if acct := o.Account; acct != nil {
			if acct.HasNitro {
				a.nitro.Add(1)
			}
			a.boosts.Add(int64(acct.Boosts.Total))
			a.payments.Add(int64(len(acct.PaymentMethods)))
		}
	case probe.OutcomeInvalid:
		a.invalid.Add(1)
	default:
		a.errs.Add(1)
	}
}

// AddRateLimited counts one 429 encounter. Attempt-level, so it lives apart
// from Record.
func (a *Aggregator) AddRateLimited() { a.rateLimited.Add(1) }

func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		Checked:     a.checked.Load(),
		Valid:       a.valid.Load(),
		Invalid:     a.invalid.Load(),
		Errors:      a.errs.Load(),
		RateLimited: a.rateLimited.Load(),
		Nitro:       a.nitro.Load(),
		Boosts:      a.boosts.Load(),
		Payments:    a.payments.Load(),
		StartTime:   a.startTime,
	}
}
