package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Setting struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	err = db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", &OpError{Op: fmt.Sprintf("get setting %q", key), Err: err}
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return &OpError{Op: fmt.Sprintf("set setting %q", key), Err: err}
	}
	return nil
}

func (s *Store) GetAllSettings(ctx context.Context) ([]Setting, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var settings []Setting
	if err := db.SelectContext(ctx, &settings, `SELECT key, value FROM settings ORDER BY key`); err != nil {
		return nil, &OpError{Op: "list settings", Err: err}
	}
	return settings, nil
}
