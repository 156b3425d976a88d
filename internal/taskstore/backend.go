package taskstore

import (
	"context"
	"time"

	"github.com/sadopc/pomolist/internal/store"
)

// Backend is the call shape shared by the local store and the remote task API
// used for signed-in users. Callers depend on it so either can be plugged in.
type Backend interface {
	CreateTask(ctx context.Context, d Draft) (*store.Task, error)
	GetTask(ctx context.Context, id string) (*store.Task, error)
	UpdateTask(ctx context.Context, id string, p Patch) (*store.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CompleteTask(ctx context.Context, id string, focused time.Duration) (*store.Task, error)
	ReorderTask(ctx context.Context, prevOrder, newOrder int) error
	ListActive(ctx context.Context, done bool) (*Listing, error)
	PruneStale(ctx context.Context, threshold time.Time) (int, error)
	PruneUnfinishedPast(ctx context.Context, current time.Time) (int, error)
}

var _ Backend = (*Service)(nil)
