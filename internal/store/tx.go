package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Tx exposes the task primitives inside a single SQLite transaction.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise. The store allows a single connection, so fn must only use tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return &OpError{Op: "begin transaction", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &OpError{Op: "commit transaction", Err: err}
	}
	return nil
}

func (t *Tx) Insert(ctx context.Context, task *Task) error {
	return insertTask(ctx, t.tx, task)
}

func (t *Tx) FetchAll(ctx context.Context) ([]*Task, error) {
	return fetchAll(ctx, t.tx)
}

func (t *Tx) FetchOne(ctx context.Context, id string) (*Task, error) {
	return fetchOne(ctx, t.tx, id)
}

func (t *Tx) Replace(ctx context.Context, task *Task) error {
	return replaceTask(ctx, t.tx, task)
}

func (t *Tx) Delete(ctx context.Context, id string) error {
	return deleteTask(ctx, t.tx, id)
}
