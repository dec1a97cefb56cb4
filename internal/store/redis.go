package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradedeck/dashfeed/internal/config"
)

const (
	mirrorKeyPrefix = "dashfeed:snapshot:"
	mirrorTimeout   = 2 * time.Second
	mirrorQueueSize = 256
)

// RedisMirror writes feed snapshots to Redis so restarts and sibling
// instances can serve data before their own feeds warm up. Writes are queued
// and performed by a single background goroutine; a slow or dead Redis never
// blocks the routing path.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	queue chan mirrorWrite
	done  chan struct{}
	wg    sync.WaitGroup
}

type mirrorWrite struct {
	feed string
	data []byte
}

// NewRedisMirror creates a mirror from config. Returns nil when Redis is
// disabled; the store treats a nil mirror as memory-only.
func NewRedisMirror(cfg config.RedisConfig, logger *slog.Logger) *RedisMirror {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	m := &RedisMirror{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
		queue:  make(chan mirrorWrite, mirrorQueueSize),
		done:   make(chan struct{}),
	}

	m.wg.Add(1)
	go m.writeLoop()

	return m
}

// Store enqueues one snapshot write. Never blocks; when the queue is full
// the snapshot is dropped and the next update for the feed replaces it anyway.
func (m *RedisMirror) Store(feedName string, data []byte) {
	select {
	case m.queue <- mirrorWrite{feed: feedName, data: data}:
	default:
		m.logger.Debug("mirror queue full, dropping snapshot", "feed", feedName)
	}
}

// writeLoop drains the queue, one best-effort SET at a time.
func (m *RedisMirror) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case w := <-m.queue:
			m.write(w)
		}
	}
}

func (m *RedisMirror) write(w mirrorWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	if err := m.client.Set(ctx, mirrorKeyPrefix+w.feed, w.data, m.ttl).Err(); err != nil {
		m.logger.Debug("snapshot mirror write failed", "feed", w.feed, "error", err)
	}
}

// Load reads a mirrored snapshot, for warm-starting after a restart.
func (m *RedisMirror) Load(ctx context.Context, feedName string) ([]byte, error) {
	data, err := m.client.Get(ctx, mirrorKeyPrefix+feedName).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// Ping verifies the Redis connection.
func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close stops the write loop and releases the Redis client.
func (m *RedisMirror) Close() error {
	close(m.done)
	m.wg.Wait()
	return m.client.Close()
}
