package taskstore

import (
	"context"
	"time"

	"github.com/sadopc/pomolist/internal/ordering"
	"github.com/sadopc/pomolist/internal/store"
)

// DayGroup is the tasks of one calendar day, in rank order.
type DayGroup struct {
	Date  time.Time
	Tasks []*store.Task
}

// Listing is a read-side view of the tasks: one flat ranked list plus the same
// tasks grouped by day. Groups follow the order of their first task.
type Listing struct {
	Tasks []*store.Task
	Days  []DayGroup
}

const dayKey = "2006-01-02"

// Day returns the tasks dated on the same calendar day as date.
func (l *Listing) Day(date time.Time) []*store.Task {
	key := store.Day(date).Format(dayKey)
	for _, g := range l.Days {
		if g.Date.Format(dayKey) == key {
			return g.Tasks
		}
	}
	return nil
}

// ListActive returns the tasks whose done flag matches done. Active tasks are
// in rank order; done tasks have no rank and keep date order.
func (s *Service) ListActive(ctx context.Context, done bool) (*Listing, error) {
	var all []*store.Task
	err := s.run(ctx, "list", func(c store.Collection) error {
		var err error
		all, err = c.FetchAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var matching []*store.Task
	for _, t := range all {
		if t.Done == done {
			matching = append(matching, t)
		}
	}
	return group(ordering.SortByOrder(matching)), nil
}

func group(tasks []*store.Task) *Listing {
	l := &Listing{Tasks: tasks}
	index := make(map[string]int)
	for _, t := range tasks {
		key := t.Date.Format(dayKey)
		i, ok := index[key]
		if !ok {
			i = len(l.Days)
			index[key] = i
			l.Days = append(l.Days, DayGroup{Date: t.Date})
		}
		l.Days[i].Tasks = append(l.Days[i].Tasks, t)
	}
	return l
}
