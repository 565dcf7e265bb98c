package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memory-pairs/internal/game"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "STATIC_DIR", "REDIS_ADDR", "SQLITE_PATH", "NATS_URL",
		"BOARD_ROWS", "BOARD_COLS", "TIME_LIMIT", "TICK_INTERVAL", "MISMATCH_DELAY", "IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("ALLOWED_WS_ORIGINS", "")
	os.Unsetenv("ALLOWED_WS_ORIGINS")
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, game.DefaultRules(), cfg.Rules())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "pairs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
redis_addr: redis:6379
allowed_origins:
  - https://pairs.example.com
board:
  rows: 2
  cols: 4
  time_limit: 30
  mismatch_delay: 750ms
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("BOARD_COLS", "6")
	t.Setenv("IDLE_TIMEOUT", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "9100", cfg.Port)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, []string{"https://pairs.example.com"}, cfg.AllowedOrigins)
	require.Equal(t, 90*time.Second, cfg.IdleTimeout)
	require.Equal(t, game.Rules{
		Rows:          2,
		Cols:          6,
		TimeLimit:     30,
		TickInterval:  time.Second,
		MismatchDelay: 750 * time.Millisecond,
	}, cfg.Rules())
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LOG_LEVEL")

	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadAllowedOriginsList(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_WS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "odd board", env: map[string]string{"BOARD_ROWS": "3", "BOARD_COLS": "3"}, want: "invalid board"},
		{name: "too many pairs", env: map[string]string{"BOARD_ROWS": "8", "BOARD_COLS": "8"}, want: "invalid board"},
		{name: "bad int", env: map[string]string{"TIME_LIMIT": "soon"}, want: `parse TIME_LIMIT="soon"`},
		{name: "zero time", env: map[string]string{"TIME_LIMIT": "0"}, want: "invalid time_limit"},
		{name: "bad duration", env: map[string]string{"MISMATCH_DELAY": "fast"}, want: `parse MISMATCH_DELAY="fast"`},
		{name: "negative delay", env: map[string]string{"MISMATCH_DELAY": "-1s"}, want: "invalid mismatch_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config")
}
