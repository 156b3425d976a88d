package taskstore

import (
	"context"
	"time"

	"github.com/sadopc/pomolist/internal/ordering"
	"github.com/sadopc/pomolist/internal/store"
)

// CreateTask inserts a new active task after the last active task dated on or
// before d.Date, shifting only the tasks ranked after it.
func (s *Service) CreateTask(ctx context.Context, d Draft) (*store.Task, error) {
	d, err := d.normalize()
	if err != nil {
		return nil, s.rejected("create", err)
	}

	var created *store.Task
	var shifted int
	err = s.run(ctx, "create", func(c store.Collection) error {
		active, err := activeSorted(ctx, c)
		if err != nil {
			return err
		}

		pos := -1
		for i := len(active) - 1; i >= 0; i-- {
			if !active[i].Date.After(d.Date) {
				pos = i
				break
			}
		}

		order := 1
		var moved []*store.Task
		if pos < 0 {
			moved = ordering.ShiftUp(active)
		} else {
			order = active[pos].Rank() + 1
			moved = ordering.ShiftUp(active[pos+1:])
		}
		if err := persist(ctx, c, moved); err != nil {
			return err
		}

		task := &store.Task{
			ID:            s.newID(),
			Date:          d.Date,
			Title:         d.Title,
			Categories:    d.Categories,
			DurationUnits: d.DurationUnits,
			Order:         store.IntPtr(order),
			CreatedAt:     s.now().UTC(),
		}
		if err := c.Insert(ctx, task); err != nil {
			return err
		}
		created, shifted = task, len(moved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("id", created.ID).Int("order", created.Rank()).Int("shifted", shifted).Msg("task created")
	return created, nil
}

// GetTask returns the task with the given id.
func (s *Service) GetTask(ctx context.Context, id string) (*store.Task, error) {
	var task *store.Task
	err := s.run(ctx, "get", func(c store.Collection) error {
		var err error
		task, err = c.FetchOne(ctx, id)
		return err
	})
	return task, err
}

// UpdateTask merges p into the task. The order is left as is: moving a task to
// another day must be followed by ReorderTask to keep ranks date-ascending.
func (s *Service) UpdateTask(ctx context.Context, id string, p Patch) (*store.Task, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, s.rejected("update", err)
	}

	var task *store.Task
	var movedDay bool
	err = s.run(ctx, "update", func(c store.Collection) error {
		var err error
		if task, err = c.FetchOne(ctx, id); err != nil {
			return err
		}
		if p.Date != nil {
			movedDay = !p.Date.Equal(task.Date)
			task.Date = *p.Date
		}
		if p.Title != nil {
			task.Title = *p.Title
		}
		if p.DurationUnits != nil {
			task.DurationUnits = *p.DurationUnits
		}
		if p.Categories != nil {
			task.Categories = *p.Categories
		}
		return c.Replace(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if movedDay && task.Active() {
		s.log.Debug().Str("id", id).Int("order", task.Rank()).Msg("task moved to another day; order unchanged")
	}
	return task, nil
}

// DeleteTask removes the task and closes the gap it leaves in the ranking.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.run(ctx, "delete", func(c store.Collection) error {
		task, err := c.FetchOne(ctx, id)
		if err != nil {
			return err
		}
		if err := s.closeGap(ctx, c, task); err != nil {
			return err
		}
		return c.Delete(ctx, id)
	})
}

// CompleteTask marks the task done with the given focus time and takes it out
// of the ranking.
func (s *Service) CompleteTask(ctx context.Context, id string, focused time.Duration) (*store.Task, error) {
	if focused < 0 {
		return nil, s.rejected("complete", invalid("focused", "must not be negative"))
	}

	var task *store.Task
	err := s.run(ctx, "complete", func(c store.Collection) error {
		var err error
		if task, err = c.FetchOne(ctx, id); err != nil {
			return err
		}
		if task.Done {
			return invalid("done", "task %s is already completed", id)
		}
		if err := s.closeGap(ctx, c, task); err != nil {
			return err
		}
		task.Done = true
		task.Order = nil
		task.FocusedMillis = focused.Milliseconds()
		return c.Replace(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// closeGap shifts down every active task ranked after task.
func (s *Service) closeGap(ctx context.Context, c store.Collection, task *store.Task) error {
	if !task.Active() {
		return nil
	}
	active, err := activeSorted(ctx, c)
	if err != nil {
		return err
	}
	return persist(ctx, c, ordering.ShiftDown(suffixAfter(active, task.ID)))
}

// ReorderTask moves the active task at prevOrder to newOrder. Both must be
// current active positions.
func (s *Service) ReorderTask(ctx context.Context, prevOrder, newOrder int) error {
	return s.run(ctx, "reorder", func(c store.Collection) error {
		active, err := activeSorted(ctx, c)
		if err != nil {
			return err
		}

		exists := make(map[int]bool, len(active))
		for _, t := range active {
			exists[t.Rank()] = true
		}
		for _, o := range []int{prevOrder, newOrder} {
			if !exists[o] {
				return invalid("order", "%d is not an active position (1..%d)", o, len(active))
			}
		}
		if prevOrder == newOrder {
			return nil
		}

		lo, hi := min(prevOrder, newOrder), max(prevOrder, newOrder)
		var span []*store.Task
		for _, t := range active {
			if o := t.Rank(); o >= lo && o <= hi {
				span = append(span, t)
			}
		}
		return persist(ctx, c, ordering.MoveRange(span, prevOrder, newOrder))
	})
}
