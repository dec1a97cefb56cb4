package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Backend.RestURL == "" {
		return errors.New("backend.rest_url is required")
	}
	if c.Backend.WSURL == "" {
		return errors.New("backend.ws_url is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis.address is required when redis is enabled")
	}

	if c.Feed.MissedThreshold < 1 {
		return errors.New("feed.missed_threshold must be >= 1")
	}
	if c.Feed.ReconnectAttempts < 1 {
		return errors.New("feed.reconnect_attempts must be >= 1")
	}
	if c.Feed.ReconnectBase > c.Feed.ReconnectMax {
		return fmt.Errorf("feed.reconnect_base (%v) cannot exceed reconnect_max (%v)",
			c.Feed.ReconnectBase, c.Feed.ReconnectMax)
	}

	if c.Pollers.FastInterval > c.Pollers.Interval {
		return fmt.Errorf("pollers.fast_interval (%v) cannot exceed interval (%v)",
			c.Pollers.FastInterval, c.Pollers.Interval)
	}
	if c.Pollers.Retries < 0 {
		return errors.New("pollers.retries must be >= 0")
	}

	if c.Writers.BatchSize < 1 {
		return errors.New("writers.batch_size must be >= 1")
	}
	if c.Writers.BufferSize < 1 {
		return errors.New("writers.buffer_size must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
