package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultRedisTTL          = 5 * time.Minute
	DefaultPingInterval      = 30 * time.Second
	DefaultMissedThreshold   = 3
	DefaultReconnectBase     = 1 * time.Second
	DefaultReconnectMax      = 30 * time.Second
	DefaultReconnectJitter   = 1 * time.Second
	DefaultReconnectAttempts = 10
	DefaultWriteTimeout      = 5 * time.Second
	DefaultFeedBufferSize    = 1000
	DefaultPollInterval      = 30 * time.Second
	DefaultFastPollInterval  = 5 * time.Second
	DefaultPollTimeout       = 10 * time.Second
	DefaultPollRetries       = 2
	DefaultPollRetryDelay    = 2 * time.Second
	DefaultBatchSize         = 500
	DefaultFlushInterval     = 1 * time.Second
	DefaultWriterBufferSize  = 5000
	DefaultServerPort        = 8080
)

func (c *Config) applyDefaults() {
	// Backend defaults
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultAPITimeout
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = DefaultMaxRetries
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	// Feed defaults
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.MissedThreshold == 0 {
		c.Feed.MissedThreshold = DefaultMissedThreshold
	}
	if c.Feed.ReconnectBase == 0 {
		c.Feed.ReconnectBase = DefaultReconnectBase
	}
	if c.Feed.ReconnectMax == 0 {
		c.Feed.ReconnectMax = DefaultReconnectMax
	}
	if c.Feed.ReconnectJitter == 0 {
		c.Feed.ReconnectJitter = DefaultReconnectJitter
	}
	if c.Feed.ReconnectAttempts == 0 {
		c.Feed.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Poller defaults
	if c.Pollers.Interval == 0 {
		c.Pollers.Interval = DefaultPollInterval
	}
	if c.Pollers.FastInterval == 0 {
		c.Pollers.FastInterval = DefaultFastPollInterval
	}
	if c.Pollers.Timeout == 0 {
		c.Pollers.Timeout = DefaultPollTimeout
	}
	if c.Pollers.Retries == 0 {
		c.Pollers.Retries = DefaultPollRetries
	}
	if c.Pollers.RetryDelay == 0 {
		c.Pollers.RetryDelay = DefaultPollRetryDelay
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultWriterBufferSize
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}
