package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Readiness wait ceiling: ReadyAttempts polls, ReadyInterval apart.
const (
	ReadyAttempts = 10
	ReadyInterval = 100 * time.Millisecond
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is a handle to the local task collection. The handle is usable as soon
// as Open returns, but every primitive fails with ErrUninitialized until the
// background open has finished.
type Store struct {
	ready chan struct{}
	db    *sqlx.DB
	err   error
}

// Open starts opening (or creating) the SQLite database at dbPath in the
// background and returns immediately. Use Ready to wait for it.
func Open(dbPath string) *Store {
	s := &Store{ready: make(chan struct{})}
	go func() {
		s.db, s.err = open(dbPath)
		close(s.ready)
	}()
	return s
}

// New opens the database at dbPath and waits for it to become ready.
func New(ctx context.Context, dbPath string) (*Store, error) {
	s := Open(dbPath)
	if err := s.Ready(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(ctx context.Context) (*Store, error) {
	return New(ctx, ":memory:")
}

func open(dbPath string) (*sqlx.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, &OpError{Op: "create db directory", Err: err}
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, &OpError{Op: "open database", Err: err}
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &OpError{Op: fmt.Sprintf("exec pragma %q", p), Err: err}
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, &OpError{Op: "migrate", Err: err}
	}
	return db, nil
}

// Ready waits for the background open using the default polling ceiling.
func (s *Store) Ready(ctx context.Context) error {
	return s.WaitReady(ctx, ReadyAttempts, ReadyInterval)
}

// WaitReady polls for the open to finish, up to attempts times interval apart.
// It returns ErrUninitialized when the ceiling is reached and the open error
// when opening failed.
func (s *Store) WaitReady(ctx context.Context, attempts int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ready:
			return s.err
		default:
		}
		if i >= attempts {
			return ErrUninitialized
		}
		select {
		case <-s.ready:
			return s.err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// conn returns the open database without waiting.
func (s *Store) conn() (*sqlx.DB, error) {
	select {
	case <-s.ready:
		if s.err != nil {
			return nil, s.err
		}
		return s.db, nil
	default:
		return nil, ErrUninitialized
	}
}

// Close waits for a pending open and closes the database.
func (s *Store) Close() error {
	<-s.ready
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version > currentVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, currentVersion)
	}
	if version == currentVersion {
		return nil
	}

	if err := migrateV1(db); err != nil {
		return err
	}

	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func migrateV1(db *sqlx.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS tasks (
		id              TEXT PRIMARY KEY,
		date            TEXT NOT NULL,
		title           TEXT NOT NULL,
		categories      TEXT,
		duration_units  INTEGER NOT NULL,
		focused_millis  INTEGER NOT NULL DEFAULT 0,
		done            INTEGER NOT NULL DEFAULT 0,
		rank            INTEGER,
		created_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_rank ON tasks(rank);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/pomolist/pomolist.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "pomolist", "pomolist.db"), nil
}
