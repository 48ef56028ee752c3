package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often the janitor walks the store looking
// for expired messages when no interval is configured explicitly.
const DefaultSweepInterval = 60 * time.Second

// Janitor periodically sweeps a Store for expired messages. It is modeled
// as a scheduled task with a cancellation handle owned by the server
// lifecycle, not a loose background thread: cancelling the context passed to
// Run stops the loop after one final sweep, and Wait blocks until that has
// happened.
type Janitor struct {
	store    *Store
	interval time.Duration
	done     chan struct{}
}

// NewJanitor creates a Janitor for store. An interval of 0 uses
// DefaultSweepInterval.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Run starts the sweep loop and blocks until ctx is cancelled. Call it in
// its own goroutine. It performs a final sweep before returning so that a
// shutdown-triggered cancellation still cleans up anything that expired
// just before the process stopped.
func (j *Janitor) Run(ctx context.Context) {
	defer close(j.done)

	logger := logrus.WithFields(logrus.Fields{
		"function": "Run",
		"package":  "relay",
		"interval": j.interval.String(),
	})
	logger.Info("Janitor: starting sweep loop")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.store.sweepOnce()
			logger.Info("Janitor: context cancelled, performed final sweep and stopped")
			return
		case <-ticker.C:
			before := j.store.Stats().ExpiredSweptTotal
			j.store.sweepOnce()
			after := j.store.Stats().ExpiredSweptTotal
			if after > before {
				logger.WithFields(logrus.Fields{
					"swept_this_pass": after - before,
				}).Debug("Janitor: sweep pass complete")
			}
		}
	}
}

// Wait blocks until Run has returned, e.g. after its context was
// cancelled. Safe to call from a different goroutine than Run.
func (j *Janitor) Wait() {
	<-j.done
}
