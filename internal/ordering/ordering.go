// Package ordering relabels the rank of in-memory tasks. Nothing here touches
// storage; callers persist whatever the functions report as changed.
package ordering

import (
	"cmp"
	"slices"

	"github.com/sadopc/pomolist/internal/store"
)

// ShiftUp adds one to every task's order. An empty slice is a no-op and
// yields nil.
func ShiftUp(tasks []*store.Task) []*store.Task {
	return ShiftBy(tasks, 1)
}

// ShiftDown subtracts one from every task's order. An empty slice is a no-op
// and yields nil.
func ShiftDown(tasks []*store.Task) []*store.Task {
	return ShiftBy(tasks, -1)
}

// ShiftBy adds delta to the order of every ranked task and returns the tasks
// it changed. Tasks without an order are left alone.
func ShiftBy(tasks []*store.Task, delta int) []*store.Task {
	if len(tasks) == 0 || delta == 0 {
		return nil
	}
	changed := make([]*store.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Order == nil {
			continue
		}
		t.Order = store.IntPtr(*t.Order + delta)
		changed = append(changed, t)
	}
	return changed
}

// MoveRange relabels the task at order from to order to. tasks must be the
// tasks whose order lies between from and to inclusive. Moving forward shifts
// the rest of the range down by one, moving backward shifts it up by one.
// It returns the tasks whose order changed.
func MoveRange(tasks []*store.Task, from, to int) []*store.Task {
	if from == to {
		return nil
	}
	var changed []*store.Task
	for _, t := range tasks {
		if t.Order == nil {
			continue
		}
		o := *t.Order
		var n int
		switch {
		case o == from:
			n = to
		case from < to && o > from && o <= to:
			n = o - 1
		case from > to && o >= to && o < from:
			n = o + 1
		default:
			continue
		}
		t.Order = store.IntPtr(n)
		changed = append(changed, t)
	}
	return changed
}

// SortByOrder returns a copy of tasks sorted by ascending order. Tasks without
// an order go last and keep their relative position.
func SortByOrder(tasks []*store.Task) []*store.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b *store.Task) int {
		switch {
		case a.Order == nil && b.Order == nil:
			return 0
		case a.Order == nil:
			return 1
		case b.Order == nil:
			return -1
		}
		return cmp.Compare(*a.Order, *b.Order)
	})
	return sorted
}

// Renumber assigns orders 1..len(tasks) following slice order and returns the
// tasks whose order changed.
func Renumber(tasks []*store.Task) []*store.Task {
	var changed []*store.Task
	for i, t := range tasks {
		if t.Order != nil && *t.Order == i+1 {
			continue
		}
		t.Order = store.IntPtr(i + 1)
		changed = append(changed, t)
	}
	return changed
}

// Dense reports whether the orders of the ranked tasks are exactly 1..N.
func Dense(tasks []*store.Task) bool {
	var n int
	for _, t := range tasks {
		if t.Order != nil {
			n++
		}
	}
	seen := make([]bool, n+1)
	for _, t := range tasks {
		if t.Order == nil {
			continue
		}
		o := *t.Order
		if o < 1 || o > n || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

// Active returns the tasks that take part in the ranking.
func Active(tasks []*store.Task) []*store.Task {
	var active []*store.Task
	for _, t := range tasks {
		if t.Active() {
			active = append(active, t)
		}
	}
	return active
}
