package store

import "time"

// Task is the only persisted record.
type Task struct {
	ID            string
	Date          time.Time
	Title         string
	Categories    []string
	DurationUnits int
	FocusedMillis int64
	Done          bool
	// Order is the task's rank among active tasks, starting at 1. It is nil
	// once the task is done.
	Order     *int
	CreatedAt time.Time
}

// Active reports whether the task takes part in the ranking.
func (t *Task) Active() bool { return t.Order != nil }

// Rank returns the task's order, or 0 for inactive tasks.
func (t *Task) Rank() int {
	if t.Order == nil {
		return 0
	}
	return *t.Order
}

// Focused returns the accumulated focus time.
func (t *Task) Focused() time.Duration {
	return time.Duration(t.FocusedMillis) * time.Millisecond
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.Order != nil {
		o := *t.Order
		c.Order = &o
	}
	if t.Categories != nil {
		c.Categories = append([]string(nil), t.Categories...)
	}
	return &c
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// Day normalizes t to local midnight of its calendar day, expressed in a fixed
// UTC-offset zone so the value survives a round trip through RFC 3339 text.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	_, offset := midnight.Zone()
	return midnight.In(time.FixedZone("", offset))
}
