// Package scheduler polls the materialized state for due reminders and
// fires each at most once. Firing is recorded back through the log, so
// a restart never re-delivers a reminder another run already handled.
package scheduler

import (
	"context"
	"time"

	"github.com/mnemo-hq/mnemo/internal/actions"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/logging"
)

// FireFunc delivers one due reminder to the user.
type FireFunc func(r *core.Reminder)

// Scheduler ticks, folds, and fires.
type Scheduler struct {
	dispatcher *actions.Dispatcher
	interval   time.Duration
	fire       FireFunc
	log        *logging.Logger
}

// New returns a scheduler that checks every interval and delivers due
// reminders through fire.
func New(d *actions.Dispatcher, interval time.Duration, fire FireFunc) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		dispatcher: d,
		interval:   interval,
		fire:       fire,
		log:        logging.WithField("component", "scheduler"),
	}
}

// Run blocks, checking for due reminders every tick until ctx is
// cancelled. One check runs immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.Check(time.Now()); err != nil {
		s.log.Warn("reminder check failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.Check(now); err != nil {
				s.log.Warn("reminder check failed: %v", err)
			}
		}
	}
}

// Check fires every reminder due at now and marks it fired. The mark is
// written before delivery counts as done; if the append fails the
// reminder stays unfired and the next tick retries it.
func (s *Scheduler) Check(now time.Time) error {
	b, err := s.dispatcher.Snapshot()
	if err != nil {
		return err
	}

	for _, r := range b.DueReminders(now) {
		if _, err := s.dispatcher.MarkReminderFired(r.ID); err != nil {
			s.log.Warn("mark reminder %s fired: %v", r.ID, err)
			continue
		}
		s.log.Info("reminder due: %s", r.Description)
		if s.fire != nil {
			s.fire(r)
		}
	}
	return nil
}
