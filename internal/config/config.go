package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sadopc/pomolist/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g. POMOLIST_DB_PATH.
const EnvPrefix = "POMOLIST"

// Config holds all configuration for the application
type Config struct {
	DBPath   string         `mapstructure:"db_path"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Pomodoro PomodoroConfig `mapstructure:"pomodoro"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// StoreConfig bounds the readiness wait after opening the database.
type StoreConfig struct {
	ReadyAttempts int           `mapstructure:"ready_attempts"`
	ReadyInterval time.Duration `mapstructure:"ready_interval"`
}

type SweepConfig struct {
	RolloverHour    int `mapstructure:"rollover_hour"`
	RetentionMonths int `mapstructure:"retention_months"`
}

type PomodoroConfig struct {
	UnitMinutes int `mapstructure:"unit_minutes"`
}

// Unit returns the length of one pomodoro.
func (p PomodoroConfig) Unit() time.Duration {
	return time.Duration(p.UnitMinutes) * time.Minute
}

// Load reads configuration from defaults, an optional YAML file, a .env file
// in the working directory and POMOLIST_* environment variables, in
// increasing order of precedence. An empty path falls back to DefaultPath
// when that file exists.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		if def, err := DefaultPath(); err == nil {
			path = def
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			missing := errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) error {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("default db path: %w", err)
	}
	v.SetDefault("db_path", dbPath)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("store.ready_attempts", store.ReadyAttempts)
	v.SetDefault("store.ready_interval", store.ReadyInterval.String())

	v.SetDefault("sweep.rollover_hour", 4)
	v.SetDefault("sweep.retention_months", 2)

	v.SetDefault("pomodoro.unit_minutes", 25)
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Store.ReadyAttempts < 1 {
		return fmt.Errorf("store.ready_attempts must be positive")
	}
	if c.Store.ReadyInterval <= 0 {
		return fmt.Errorf("store.ready_interval must be positive")
	}
	if c.Sweep.RolloverHour < 0 || c.Sweep.RolloverHour > 23 {
		return fmt.Errorf("sweep.rollover_hour must be between 0 and 23")
	}
	if c.Sweep.RetentionMonths < 1 {
		return fmt.Errorf("sweep.retention_months must be at least 1")
	}
	if c.Pomodoro.UnitMinutes < 1 || c.Pomodoro.UnitMinutes > 120 {
		return fmt.Errorf("pomodoro.unit_minutes must be between 1 and 120")
	}
	return nil
}

// DefaultPath returns ~/.config/pomolist/config.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pomolist", "config.yaml"), nil
}
