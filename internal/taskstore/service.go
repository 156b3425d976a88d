// Package taskstore implements the task business operations on top of the
// local store and owns the order invariant: at rest the orders of the active
// tasks are exactly 1..N.
//
// Every operation validates its input first, then runs under the service
// mutex with all of its reads and writes in a single store transaction.
// Within that transaction the writes keep the original two-phase order
// (shift the suffix, then mutate or remove the target); only the transaction
// makes the pair atomic. Repair restores density if a gap ever reaches disk.
package taskstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sadopc/pomolist/internal/ordering"
	"github.com/sadopc/pomolist/internal/store"
)

// Limits enforced on every write.
const (
	MaxCategories = 5
	MinUnits      = 1
	MaxUnits      = 10
)

// Storage is the part of the store adapter the service needs.
type Storage interface {
	WithTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Service is the task store. It is safe for concurrent use within a process.
type Service struct {
	mu      sync.Mutex
	storage Storage
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the UUID generator.
func WithIDs(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func New(st Storage, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		storage: st,
		log:     logger.With().Str("component", "taskstore").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draft holds the fields of a task to create.
type Draft struct {
	Date          time.Time
	Title         string
	Categories    []string
	DurationUnits int
}

// Patch holds the fields to change on an existing task; nil fields are kept.
type Patch struct {
	Date          *time.Time
	Title         *string
	DurationUnits *int
	Categories    *[]string
}

func (d Draft) normalize() (Draft, error) {
	if d.Date.IsZero() {
		return d, invalid("date", "is required")
	}
	d.Date = store.Day(d.Date)

	title, err := normalizeTitle(d.Title)
	if err != nil {
		return d, err
	}
	d.Title = title

	if d.Categories, err = normalizeCategories(d.Categories); err != nil {
		return d, err
	}
	if err := checkUnits(d.DurationUnits); err != nil {
		return d, err
	}
	return d, nil
}

func (p Patch) normalize() (Patch, error) {
	if p.Date != nil {
		if p.Date.IsZero() {
			return p, invalid("date", "is required")
		}
		day := store.Day(*p.Date)
		p.Date = &day
	}
	if p.Title != nil {
		title, err := normalizeTitle(*p.Title)
		if err != nil {
			return p, err
		}
		p.Title = &title
	}
	if p.Categories != nil {
		cats, err := normalizeCategories(*p.Categories)
		if err != nil {
			return p, err
		}
		p.Categories = &cats
	}
	if p.DurationUnits != nil {
		if err := checkUnits(*p.DurationUnits); err != nil {
			return p, err
		}
	}
	return p, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "must not be empty")
	}
	return title, nil
}

// normalizeCategories trims every category and drops empty ones. An input
// with nothing left is treated as absent.
func normalizeCategories(in []string) ([]string, error) {
	var out []string
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) > MaxCategories {
		return nil, invalid("categories", "at most %d allowed, got %d", MaxCategories, len(out))
	}
	return out, nil
}

func checkUnits(n int) error {
	if n < MinUnits || n > MaxUnits {
		return invalid("duration", "must be between %d and %d pomodoros, got %d", MinUnits, MaxUnits, n)
	}
	return nil
}

// run serializes fn against every other operation of the service and gives
// it a transaction.
func (s *Service) run(ctx context.Context, op string, fn func(c store.Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.storage.WithTx(ctx, func(tx *store.Tx) error { return fn(tx) })
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation), errors.Is(err, store.ErrNotFound):
		s.log.Debug().Err(err).Str("op", op).Msg("operation rejected")
	default:
		s.log.Error().Err(err).Str("op", op).Msg("operation failed")
	}
	return err
}

func (s *Service) rejected(op string, err error) error {
	s.log.Debug().Err(err).Str("op", op).Msg("operation rejected")
	return err
}

// activeSorted fetches the ranked tasks in order.
func activeSorted(ctx context.Context, c store.Collection) ([]*store.Task, error) {
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return ordering.SortByOrder(ordering.Active(all)), nil
}

// suffixAfter returns the tasks ranked strictly after the task with the given
// id, or nil when it is not in the slice.
func suffixAfter(active []*store.Task, id string) []*store.Task {
	for i, t := range active {
		if t.ID == id {
			return active[i+1:]
		}
	}
	return nil
}

func persist(ctx context.Context, c store.Collection, tasks []*store.Task) error {
	for _, t := range tasks {
		if err := c.Replace(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
