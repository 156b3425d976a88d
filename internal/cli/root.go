// Package cli wires configuration, logging, the store and the task service
// into the pomolist command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomolist/internal/config"
	"github.com/sadopc/pomolist/internal/logging"
	"github.com/sadopc/pomolist/internal/schedule"
	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
	"github.com/sadopc/pomolist/internal/tui"
)

// Version is set at build time.
var Version = "dev"

const sweepInterval = time.Minute

// app holds what the commands share once the root pre-run has finished.
type app struct {
	configPath string
	dbPath     string

	cfg   *config.Config
	log   zerolog.Logger
	svc   *taskstore.Service
	sched *schedule.Scheduler

	closers []io.Closer

	now     func() time.Time
	svcOpts []taskstore.Option
	runUI   func(b taskstore.Backend, unit time.Duration) error
}

func newApp() *app {
	return &app{now: time.Now, runUI: tui.Run, log: zerolog.Nop()}
}

// Execute runs the command line and releases everything it opened.
func Execute() error {
	a := newApp()
	defer a.close()
	return a.rootCommand().Execute()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pomolist",
		Short:         "Plan the day as an ordered list of pomodoro tasks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ui(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default <config dir>/pomolist/config.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides db_path)")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.editCmd(),
		a.doneCmd(),
		a.rmCmd(),
		a.moveCmd(),
		a.sweepCmd(),
		a.exportCmd(),
		a.repairCmd(),
		a.uiCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	// The terminal UI owns the screen, so it logs to a file.
	logCfg := cfg.Log
	if interactive(cmd) && logCfg.File == "" {
		logCfg.File = filepath.Join(filepath.Dir(cfg.DBPath), "pomolist.log")
	}
	logger, closer, err := logging.New(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closer)
	a.log = logger

	ctx := cmd.Context()
	st := store.Open(cfg.DBPath)
	a.closers = append(a.closers, st)
	if err := st.WaitReady(ctx, cfg.Store.ReadyAttempts, cfg.Store.ReadyInterval); err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	a.svc = taskstore.New(st, logger, a.svcOpts...)
	a.sched = schedule.New(a.svc, st, schedule.Config{
		RolloverHour:    cfg.Sweep.RolloverHour,
		RetentionMonths: cfg.Sweep.RetentionMonths,
	}, logger)

	// sweep runs them itself, as of its own day.
	if cmd.Name() == "sweep" {
		return nil
	}
	if _, err := a.sched.RunDue(ctx, a.now()); err != nil {
		logger.Warn().Err(err).Msg("scheduled sweep failed")
	}
	return nil
}

func interactive(cmd *cobra.Command) bool {
	return cmd.Name() == "ui" || !cmd.HasParent()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

func (a *app) uiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ui(cmd.Context())
		},
	}
}

// ui runs the terminal UI and keeps the sweeps going while it is open, so a
// session left running overnight still rolls over.
func (a *app) ui(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.sched.Run(ctx, sweepInterval, a.now)

	return a.runUI(a.svc, a.cfg.Pomodoro.Unit())
}

// everything returns the active tasks in rank order followed by the done ones.
func (a *app) everything(ctx context.Context) ([]*store.Task, error) {
	active, err := a.svc.ListActive(ctx, false)
	if err != nil {
		return nil, err
	}
	done, err := a.svc.ListActive(ctx, true)
	if err != nil {
		return nil, err
	}
	return append(active.Tasks, done.Tasks...), nil
}

var errAmbiguous = errors.New("ambiguous id")

// resolve expands an id prefix to the one task id it names.
func (a *app) resolve(ctx context.Context, prefix string) (*store.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, &taskstore.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	all, err := a.everything(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*store.Task
	for _, t := range all {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("task %q: %w", prefix, store.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%w: %q matches %d tasks", errAmbiguous, prefix, len(matches))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
