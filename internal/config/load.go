package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "PULSEWEAVE"

// ErrInvalidConfig is returned when the loaded configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// providerKeyEnv lists the conventional API key variables per provider
var providerKeyEnv = map[string]string{
	"gemini":   "GEMINI_API_KEY",
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
}

// setDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("auth.require_auth", false)
	v.SetDefault("auth.gateway_key_hash", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("provider.name", "dummy")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.prompt_template_path", "")

	v.SetDefault("worker.count", 3)
	v.SetDefault("worker.max_retries", 2)
	v.SetDefault("worker.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("worker.retry_max_delay", 4*time.Second)
	v.SetDefault("worker.call_timeout", 30*time.Second)
	v.SetDefault("worker.rate_per_second", 0.0)
	v.SetDefault("worker.rate_burst", 1)

	v.SetDefault("tasks.history_size", 1000)
	v.SetDefault("tasks.retention", 24*time.Hour)
	v.SetDefault("tasks.prune_interval", time.Hour)

	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("realtime.idle_timeout", 60*time.Second)
	v.SetDefault("realtime.write_timeout", 10*time.Second)
	v.SetDefault("realtime.max_message_bytes", 1<<20)

	v.SetDefault("asr.dir", "outputs")
	v.SetDefault("asr.poll_interval", time.Second)
	v.SetDefault("asr.max_history", 100)
	v.SetDefault("asr.ledger_capacity", 10000)
	v.SetDefault("asr.ledger_retention", 24*time.Hour)
	v.SetDefault("asr.auto_start", true)
	v.SetDefault("asr.watch_events", false)
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"port":      "server.port",
	"log-level": "server.log_level",
}

// Load builds the configuration from, in increasing precedence: defaults, the
// YAML file at configPath (or $PULSEWEAVE_CONFIG), PULSEWEAVE_* environment
// variables and explicitly set flags. flags may be nil.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.Provider.Name]; ok {
			cfg.Provider.APIKey = os.Getenv(name)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span several fields
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, needsKey := providerKeyEnv[cfg.Provider.Name]; needsKey && cfg.Provider.APIKey == "" {
		return fmt.Errorf("%w: provider %s requires an API key (set %s or %s_PROVIDER_API_KEY)",
			ErrInvalidConfig, cfg.Provider.Name, providerKeyEnv[cfg.Provider.Name], EnvPrefix)
	}

	if cfg.Auth.RequireAuth && cfg.Auth.GatewayKeyHash == "" && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.require_auth needs auth.gateway_key_hash or auth.jwt_secret", ErrInvalidConfig)
	}

	return nil
}
