package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Collection is the set of task primitives offered both by the Store and by a
// transaction started with WithTx.
type Collection interface {
	Insert(ctx context.Context, t *Task) error
	FetchAll(ctx context.Context) ([]*Task, error)
	FetchOne(ctx context.Context, id string) (*Task, error)
	Replace(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

var (
	_ Collection = (*Store)(nil)
	_ Collection = (*Tx)(nil)
)

const taskColumns = `id, date, title, categories, duration_units, focused_millis, done, rank, created_at`

type taskRow struct {
	ID            string         `db:"id"`
	Date          string         `db:"date"`
	Title         string         `db:"title"`
	Categories    sql.NullString `db:"categories"`
	DurationUnits int            `db:"duration_units"`
	FocusedMillis int64          `db:"focused_millis"`
	Done          int            `db:"done"`
	Rank          sql.NullInt64  `db:"rank"`
	CreatedAt     string         `db:"created_at"`
}

func (r *taskRow) task() (*Task, error) {
	t := &Task{
		ID:            r.ID,
		Title:         r.Title,
		DurationUnits: r.DurationUnits,
		FocusedMillis: r.FocusedMillis,
		Done:          r.Done == 1,
	}
	var err error
	if t.Date, err = time.Parse(time.RFC3339, r.Date); err != nil {
		return nil, fmt.Errorf("parse date of task %s: %w", r.ID, err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at of task %s: %w", r.ID, err)
	}
	if r.Categories.Valid {
		if err := json.Unmarshal([]byte(r.Categories.String), &t.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of task %s: %w", r.ID, err)
		}
	}
	if r.Rank.Valid {
		t.Order = IntPtr(int(r.Rank.Int64))
	}
	return t, nil
}

func taskArgs(t *Task) ([]any, error) {
	var categories sql.NullString
	if t.Categories != nil {
		b, err := json.Marshal(t.Categories)
		if err != nil {
			return nil, fmt.Errorf("encode categories: %w", err)
		}
		categories = sql.NullString{String: string(b), Valid: true}
	}
	var rank sql.NullInt64
	if t.Order != nil {
		rank = sql.NullInt64{Int64: int64(*t.Order), Valid: true}
	}
	done := 0
	if t.Done {
		done = 1
	}
	return []any{
		t.ID,
		t.Date.Format(time.RFC3339),
		t.Title,
		categories,
		t.DurationUnits,
		t.FocusedMillis,
		done,
		rank,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func insertTask(ctx context.Context, ex sqlx.ExecerContext, t *Task) error {
	if t.ID == "" {
		return &OpError{Op: "insert task", Err: errors.New("empty id")}
	}
	args, err := taskArgs(t)
	if err != nil {
		return &OpError{Op: "insert task", Err: err}
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return &OpError{Op: "insert task", Err: err}
	}
	return nil
}

func replaceTask(ctx context.Context, ex sqlx.ExecerContext, t *Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return &OpError{Op: "replace task", Err: err}
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			title = excluded.title,
			categories = excluded.categories,
			duration_units = excluded.duration_units,
			focused_millis = excluded.focused_millis,
			done = excluded.done,
			rank = excluded.rank`, args...)
	if err != nil {
		return &OpError{Op: "replace task", Err: err}
	}
	return nil
}

func fetchAll(ctx context.Context, q sqlx.QueryerContext) ([]*Task, error) {
	var rows []taskRow
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT `+taskColumns+` FROM tasks ORDER BY date, created_at`)
	if err != nil {
		return nil, &OpError{Op: "fetch tasks", Err: err}
	}

	tasks := make([]*Task, 0, len(rows))
	for i := range rows {
		t, err := rows[i].task()
		if err != nil {
			return nil, &OpError{Op: "fetch tasks", Err: err}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func fetchOne(ctx context.Context, q sqlx.QueryerContext, id string) (*Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, &OpError{Op: "fetch task " + id, Err: err}
	}
	t, err := row.task()
	if err != nil {
		return nil, &OpError{Op: "fetch task " + id, Err: err}
	}
	return t, nil
}

func deleteTask(ctx context.Context, ex sqlx.ExecerContext, id string) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return &OpError{Op: "delete task " + id, Err: err}
	}
	return nil
}

// Insert adds a new task. The id must not exist yet.
func (s *Store) Insert(ctx context.Context, t *Task) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return insertTask(ctx, db, t)
}

// FetchAll returns every task, done or not, ordered by date.
func (s *Store) FetchAll(ctx context.Context) ([]*Task, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return fetchAll(ctx, db)
}

// FetchOne returns the task with the given id or an error wrapping ErrNotFound.
func (s *Store) FetchOne(ctx context.Context, id string) (*Task, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return fetchOne(ctx, db, id)
}

// Replace upserts t.
func (s *Store) Replace(ctx context.Context, t *Task) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return replaceTask(ctx, db, t)
}

// Delete removes the task with the given id. Deleting a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return deleteTask(ctx, db, id)
}

// Clear removes every task.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return &OpError{Op: "clear tasks", Err: err}
	}
	return nil
}
