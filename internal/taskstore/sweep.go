package taskstore

import (
	"context"
	"time"

	"github.com/sadopc/pomolist/internal/ordering"
	"github.com/sadopc/pomolist/internal/store"
)

// PruneStale deletes every task, done or not, dated strictly before the day of
// threshold. Survivors keep their orders.
func (s *Service) PruneStale(ctx context.Context, threshold time.Time) (int, error) {
	cutoff := store.Day(threshold)

	var deleted int
	err := s.run(ctx, "prune_stale", func(c store.Collection) error {
		all, err := c.FetchAll(ctx)
		if err != nil {
			return err
		}
		for _, t := range all {
			if !t.Date.Before(cutoff) {
				continue
			}
			if err := c.Delete(ctx, t.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Time("before", cutoff).Int("deleted", deleted).Msg("retention sweep")
	return deleted, nil
}

// PruneUnfinishedPast deletes the unfinished tasks dated before the day of
// current and pulls the remaining unfinished tasks down by the highest order
// that was deleted, in one bulk shift.
//
// The bulk shift is only dense when the deleted tasks held exactly the first
// k ranks, which is the case whenever dates ascend with rank. Otherwise the
// survivors are renumbered by their current order.
func (s *Service) PruneUnfinishedPast(ctx context.Context, current time.Time) (int, error) {
	today := store.Day(current)

	var deleted, moved int
	err := s.run(ctx, "prune_unfinished", func(c store.Collection) error {
		active, err := activeSorted(ctx, c)
		if err != nil {
			return err
		}

		var stale, survivors []*store.Task
		for _, t := range active {
			if t.Date.Before(today) {
				stale = append(stale, t)
			} else {
				survivors = append(survivors, t)
			}
		}
		if len(stale) == 0 {
			return nil
		}

		highest := 0
		for _, t := range stale {
			highest = max(highest, t.Rank())
			if err := c.Delete(ctx, t.ID); err != nil {
				return err
			}
		}
		deleted = len(stale)

		if len(survivors) == 0 {
			return nil
		}

		var changed []*store.Task
		if highest == len(stale) {
			changed = ordering.ShiftBy(survivors, -highest)
		} else {
			s.log.Warn().Int("stale", len(stale)).Int("highest", highest).
				Msg("stale tasks were interleaved with current ones; renumbering survivors")
			changed = ordering.Renumber(survivors)
		}
		moved = len(changed)
		return persist(ctx, c, changed)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Time("before", today).Int("deleted", deleted).Int("moved", moved).Msg("rollover sweep")
	return deleted, nil
}

// Repair renumbers the active tasks 1..N by their current order when the
// ranking has a gap or a duplicate. It returns the number of relabeled tasks.
func (s *Service) Repair(ctx context.Context) (int, error) {
	var fixed int
	err := s.run(ctx, "repair", func(c store.Collection) error {
		active, err := activeSorted(ctx, c)
		if err != nil {
			return err
		}
		if ordering.Dense(active) {
			return nil
		}
		changed := ordering.Renumber(active)
		fixed = len(changed)
		return persist(ctx, c, changed)
	})
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		s.log.Warn().Int("relabeled", fixed).Msg("active order repaired")
	}
	return fixed, nil
}
