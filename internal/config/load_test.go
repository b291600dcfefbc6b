package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes sure ambient variables from the host do not leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvPrefix + "_CONFIG",
		EnvPrefix + "_PROVIDER_NAME",
		EnvPrefix + "_PROVIDER_API_KEY",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
		"DEEPSEEK_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

// TestLoadDefaults verifies that Load works with no file, env or flags
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, "dummy", cfg.Provider.Name)
	assert.Equal(t, 3, cfg.Worker.Count)
	assert.Equal(t, 2, cfg.Worker.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.RetryBaseDelay)
	assert.Equal(t, 24*time.Hour, cfg.Tasks.Retention)
	assert.Equal(t, "outputs", cfg.ASR.Dir)
	assert.Equal(t, time.Second, cfg.ASR.PollInterval)
	assert.Equal(t, 100, cfg.ASR.MaxHistory)
	assert.True(t, cfg.ASR.AutoStart)
	assert.False(t, cfg.Auth.RequireAuth)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PULSEWEAVE_SERVER_PORT", "9090")
	t.Setenv("PULSEWEAVE_WORKER_CALL_TIMEOUT", "5s")
	t.Setenv("PULSEWEAVE_ASR_DIR", "/tmp/asr")
	t.Setenv("PULSEWEAVE_PROVIDER_NAME", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Worker.CallTimeout)
	assert.Equal(t, "/tmp/asr", cfg.ASR.Dir)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
}

func TestLoadFromFileAndFlags(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "pulseweave.yaml")
	content := `
server:
  port: 7000
  log_level: debug
worker:
  count: 8
asr:
  dir: /data/outputs
  auto_start: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8000, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--port", "7100"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	// flags win over the file; untouched flags do not
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 8, cfg.Worker.Count)
	assert.Equal(t, "/data/outputs", cfg.ASR.Dir)
	assert.False(t, cfg.ASR.AutoStart)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid port", map[string]string{"PULSEWEAVE_SERVER_PORT": "70000"}},
		{"invalid log level", map[string]string{"PULSEWEAVE_SERVER_LOG_LEVEL": "verbose"}},
		{"unknown provider", map[string]string{"PULSEWEAVE_PROVIDER_NAME": "claude"}},
		{"provider without key", map[string]string{"PULSEWEAVE_PROVIDER_NAME": "gemini"}},
		{"zero workers", map[string]string{"PULSEWEAVE_WORKER_COUNT": "0"}},
		{"max delay below base", map[string]string{"PULSEWEAVE_WORKER_RETRY_MAX_DELAY": "1ms"}},
		{"short jwt secret", map[string]string{"PULSEWEAVE_AUTH_JWT_SECRET": "short"}},
		{"auth without credentials", map[string]string{"PULSEWEAVE_AUTH_REQUIRE_AUTH": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
