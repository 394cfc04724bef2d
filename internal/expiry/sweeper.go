// Package expiry deactivates deals whose expiry time has passed, on a
// cron schedule.
package expiry

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DealExpirer is the storage slice the sweeper needs.
type DealExpirer interface {
	ExpireDeals(now time.Time) (int64, error)
}

// Sweeper runs the deal-expiry sweep on a schedule. It touches only the
// deals catalog; pending search logs are deliberately left alone.
type Sweeper struct {
	store    DealExpirer
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper with the given cron schedule. An empty
// schedule defaults to hourly.
func NewSweeper(store DealExpirer, schedule string) *Sweeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default(),
	}
}

// Start registers the sweep and starts the scheduler. One sweep runs
// immediately so a restart doesn't leave stale deals visible for up to a
// full period.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return err
	}
	s.RunOnce()
	s.cron.Start()
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	n, err := s.store.ExpireDeals(time.Now().UTC())
	if err != nil {
		s.logger.Error("deal expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("deactivated expired deals", "count", n)
	}
}
