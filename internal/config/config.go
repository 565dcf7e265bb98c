// Package config loads server and game settings from defaults, an optional
// YAML file, a .env file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"memory-pairs/internal/game"
)

// Config holds every tunable of the binary
type Config struct {
	Port           string        `yaml:"port"`
	LogLevel       string        `yaml:"log_level"`
	StaticDir      string        `yaml:"static_dir"`
	RedisAddr      string        `yaml:"redis_addr"`
	SQLitePath     string        `yaml:"sqlite_path"`
	NATSURL        string        `yaml:"nats_url"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	Board          BoardConfig   `yaml:"board"`
}

// BoardConfig holds the game rules
type BoardConfig struct {
	Rows          int           `yaml:"rows"`
	Cols          int           `yaml:"cols"`
	TimeLimit     int           `yaml:"time_limit"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	MismatchDelay time.Duration `yaml:"mismatch_delay"`
}

// Default returns the built-in configuration
func Default() Config {
	rules := game.DefaultRules()
	return Config{
		Port:        "8080",
		LogLevel:    "info",
		StaticDir:   "./web",
		IdleTimeout: game.DefaultIdleTimeout,
		Board: BoardConfig{
			Rows:          rules.Rows,
			Cols:          rules.Cols,
			TimeLimit:     rules.TimeLimit,
			TickInterval:  rules.TickInterval,
			MismatchDelay: rules.MismatchDelay,
		},
	}
}

// Load builds the configuration. path may be empty; a named file that
// cannot be read is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional and never overrides variables already set
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.StaticDir, "STATIC_DIR")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.NATSURL, "NATS_URL")

	if v, ok := os.LookupEnv("ALLOWED_WS_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"BOARD_ROWS", &c.Board.Rows},
		{"BOARD_COLS", &c.Board.Cols},
		{"TIME_LIMIT", &c.Board.TimeLimit},
	} {
		if err := setInt(f.dst, f.key); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		key string
		dst *time.Duration
	}{
		{"TICK_INTERVAL", &c.Board.TickInterval},
		{"MISMATCH_DELAY", &c.Board.MismatchDelay},
		{"IDLE_TIMEOUT", &c.IdleTimeout},
	} {
		if err := setDuration(f.dst, f.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings no game can run with
func (c Config) Validate() error {
	if _, err := game.MakeBoard(c.Board.Rows, c.Board.Cols); err != nil {
		return fmt.Errorf("invalid board: %w", err)
	}
	if c.Board.TimeLimit <= 0 {
		return fmt.Errorf("invalid time_limit %d: must be positive", c.Board.TimeLimit)
	}
	if c.Board.TickInterval <= 0 {
		return fmt.Errorf("invalid tick_interval %s: must be positive", c.Board.TickInterval)
	}
	if c.Board.MismatchDelay < 0 {
		return fmt.Errorf("invalid mismatch_delay %s: must not be negative", c.Board.MismatchDelay)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid idle_timeout %s: must be positive", c.IdleTimeout)
	}
	return nil
}

// Rules returns the game rules described by the board section
func (c Config) Rules() game.Rules {
	return game.Rules{
		Rows:          c.Board.Rows,
		Cols:          c.Board.Cols,
		TimeLimit:     c.Board.TimeLimit,
		TickInterval:  c.Board.TickInterval,
		MismatchDelay: c.Board.MismatchDelay,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
