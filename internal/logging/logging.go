// Package logging builds the zerolog logger shared by the application.
package logging

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/sadopc/pomolist/internal/config"
)

const timeFormat = "2006-01-02_15:04:05"

// New returns a logger writing to the configured file, or to w when no file
// is set. The returned closer releases the file and is never nil.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("log level: %w", err)
	}

	var closer io.Closer = nopCloser{}
	out := w
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, fs.FileMode(0o666))
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat, NoColor: cfg.File != ""}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
