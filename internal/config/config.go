package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks" validate:"required"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
	ASR      ASRConfig      `mapstructure:"asr" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig contains the gateway authentication settings.
// When RequireAuth is set, at least one of GatewayKeyHash and JWTSecret must be provided.
type AuthConfig struct {
	RequireAuth    bool   `mapstructure:"require_auth"`
	GatewayKeyHash string `mapstructure:"gateway_key_hash"`
	JWTSecret      string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// ProviderConfig selects and configures the inference provider.
type ProviderConfig struct {
	Name               string `mapstructure:"name" validate:"required,oneof=dummy mock rule gemini openai deepseek"`
	APIKey             string `mapstructure:"api_key"`
	Model              string `mapstructure:"model"`
	BaseURL            string `mapstructure:"base_url" validate:"omitempty,url"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}

// WorkerConfig contains the worker pool settings.
type WorkerConfig struct {
	Count          int           `mapstructure:"count" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
	CallTimeout    time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
}

// TasksConfig contains task history and retention settings.
type TasksConfig struct {
	HistorySize   int           `mapstructure:"history_size" validate:"gt=0"`
	Retention     time.Duration `mapstructure:"retention" validate:"gt=0"`
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gt=0"`
}

// RealtimeConfig contains websocket connection settings.
type RealtimeConfig struct {
	SendBuffer      int           `mapstructure:"send_buffer" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" validate:"gt=0"`
}

// ASRConfig contains the ASR output directory watcher settings.
type ASRConfig struct {
	Dir             string        `mapstructure:"dir" validate:"required"`
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxHistory      int           `mapstructure:"max_history" validate:"gt=0"`
	LedgerCapacity  int           `mapstructure:"ledger_capacity" validate:"gt=0"`
	LedgerRetention time.Duration `mapstructure:"ledger_retention" validate:"gte=0"`
	AutoStart       bool          `mapstructure:"auto_start"`
	WatchEvents     bool          `mapstructure:"watch_events"`
}
