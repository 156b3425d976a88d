// Package schedule decides when the task store's retention sweeps run. The
// day rolls over at a fixed early-morning hour rather than at midnight, and
// the long retention sweep runs once per month. Last runs are remembered in
// the store's settings so a sweep is never repeated for the same period.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/pomolist/internal/store"
)

// Setting keys for the last completed runs.
const (
	RolloverKey  = "last_rollover"
	RetentionKey = "last_retention"
)

const (
	dayFormat   = "2006-01-02"
	monthFormat = "2006-01"
)

// Sweeper is the part of the task store the scheduler drives.
type Sweeper interface {
	PruneUnfinishedPast(ctx context.Context, current time.Time) (int, error)
	PruneStale(ctx context.Context, threshold time.Time) (int, error)
}

// Markers persists the last-run markers.
type Markers interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Config struct {
	RolloverHour    int
	RetentionMonths int
}

// DefaultConfig rolls the day over at 04:00 and keeps two months of tasks.
func DefaultConfig() Config {
	return Config{RolloverHour: 4, RetentionMonths: 2}
}

// Result reports what a run did.
type Result struct {
	BusinessDay time.Time
	Rollover    bool
	Unfinished  int
	Retention   bool
	Stale       int
}

type Scheduler struct {
	sweeper Sweeper
	markers Markers
	cfg     Config
	log     zerolog.Logger
}

func New(sw Sweeper, m Markers, cfg Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		sweeper: sw,
		markers: m,
		cfg:     cfg,
		log:     logger.With().Str("component", "schedule").Logger(),
	}
}

// BusinessDay returns the day now belongs to: before the rollover hour it is
// still the previous day.
func (s *Scheduler) BusinessDay(now time.Time) time.Time {
	return store.Day(now.Add(-time.Duration(s.cfg.RolloverHour) * time.Hour))
}

// RetentionThreshold returns the first day kept by the retention sweep.
func (s *Scheduler) RetentionThreshold(now time.Time) time.Time {
	return s.BusinessDay(now).AddDate(0, -s.cfg.RetentionMonths, 0)
}

// RunDue runs each sweep whose period has not been handled yet. A marker is
// only advanced after its sweep succeeded; nothing is retried here.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) (Result, error) {
	return s.run(ctx, now, false)
}

// RunAll runs both sweeps regardless of the markers and records them.
func (s *Scheduler) RunAll(ctx context.Context, now time.Time) (Result, error) {
	return s.run(ctx, now, true)
}

func (s *Scheduler) run(ctx context.Context, now time.Time, force bool) (Result, error) {
	day := s.BusinessDay(now)
	res := Result{BusinessDay: day}

	dayKey := day.Format(dayFormat)
	due, err := s.due(ctx, RolloverKey, dayKey, force)
	if err != nil {
		return res, err
	}
	if due {
		n, err := s.sweeper.PruneUnfinishedPast(ctx, day)
		if err != nil {
			s.log.Error().Err(err).Str("day", dayKey).Msg("rollover sweep failed")
			return res, fmt.Errorf("rollover sweep: %w", err)
		}
		if err := s.markers.SetSetting(ctx, RolloverKey, dayKey); err != nil {
			return res, fmt.Errorf("record rollover: %w", err)
		}
		res.Rollover, res.Unfinished = true, n
	}

	monthKey := day.Format(monthFormat)
	due, err = s.due(ctx, RetentionKey, monthKey, force)
	if err != nil {
		return res, err
	}
	if due {
		threshold := s.RetentionThreshold(now)
		n, err := s.sweeper.PruneStale(ctx, threshold)
		if err != nil {
			s.log.Error().Err(err).Str("month", monthKey).Msg("retention sweep failed")
			return res, fmt.Errorf("retention sweep: %w", err)
		}
		if err := s.markers.SetSetting(ctx, RetentionKey, monthKey); err != nil {
			return res, fmt.Errorf("record retention: %w", err)
		}
		res.Retention, res.Stale = true, n
	}

	if res.Rollover || res.Retention {
		s.log.Debug().Str("day", dayKey).Int("unfinished", res.Unfinished).Int("stale", res.Stale).Msg("sweeps done")
	}
	return res, nil
}

func (s *Scheduler) due(ctx context.Context, key, period string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	last, err := s.markers.GetSetting(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return last != period, nil
}

// Run calls RunDue every interval until ctx is done. Failures are logged and
// the loop carries on at the next tick.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunDue(ctx, clock()); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("scheduled sweep failed")
			}
		}
	}
}
