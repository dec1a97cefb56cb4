package config

import "time"

// Config is the root configuration for a dashfeed instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DBConfig       `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Pollers  PollersConfig  `yaml:"pollers"`
	Writers  WritersConfig  `yaml:"writers"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this dashfeed instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// BackendConfig holds trading backend API settings.
type BackendConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DBConfig holds the Postgres connection for signal/trade history.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the optional snapshot mirror settings.
// When Enabled is false the store runs memory-only.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// FeedConfig holds WebSocket feed client settings.
type FeedConfig struct {
	PingInterval      time.Duration `yaml:"ping_interval"`
	MissedThreshold   int           `yaml:"missed_threshold"`
	ReconnectBase     time.Duration `yaml:"reconnect_base"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"`
	ReconnectJitter   time.Duration `yaml:"reconnect_jitter"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// PollersConfig holds REST poller settings.
type PollersConfig struct {
	Interval     time.Duration `yaml:"interval"`      // Normal poll interval
	FastInterval time.Duration `yaml:"fast_interval"` // Interval while a backend scan runs
	Timeout      time.Duration `yaml:"timeout"`       // Per-cycle timeout
	Retries      int           `yaml:"retries"`       // Fixed retry count per cycle
	RetryDelay   time.Duration `yaml:"retry_delay"`   // Fixed delay between retries
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// ServerConfig holds the dashboard-facing HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}
