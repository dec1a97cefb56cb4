// feedtest connects to the backend WebSocket feed and streams decoded
// messages to the console.
// Usage: go run ./cmd/feedtest --config configs/dashfeed.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradedeck/dashfeed/internal/config"
	"github.com/tradedeck/dashfeed/internal/feed"
)

func main() {
	configPath := flag.String("config", "configs/dashfeed.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := feed.NewClient(feed.ClientConfig{
		URL:             cfg.Backend.WSURL,
		APIKey:          cfg.Backend.APIKey,
		PingInterval:    cfg.Feed.PingInterval,
		MissedThreshold: cfg.Feed.MissedThreshold,
		Reconnect: feed.ReconnectPolicy{
			Base:        cfg.Feed.ReconnectBase,
			Max:         cfg.Feed.ReconnectMax,
			Jitter:      cfg.Feed.ReconnectJitter,
			MaxAttempts: cfg.Feed.ReconnectAttempts,
		},
		WriteTimeout: cfg.Feed.WriteTimeout,
		BufferSize:   cfg.Feed.BufferSize,
	}, logger)

	logger.Info("connecting to feed", "url", cfg.Backend.WSURL)
	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start feed client", "error", err)
		os.Exit(1)
	}

	// State change printer
	go func() {
		for change := range client.States() {
			fmt.Printf("[STATE] %s -> %s", change.From, change.To)
			if change.Err != nil {
				fmt.Printf(" (%v)", change.Err)
			}
			fmt.Println()
		}
	}()

	// Message printer
	go func() {
		for msg := range client.Messages() {
			if *verbose {
				data, _ := json.MarshalIndent(msg, "", "  ")
				fmt.Printf("[%s] %s\n", msg.Kind, data)
			} else {
				fmt.Printf("[%s] ts=%d bytes=%d\n", msg.Kind, msg.Timestamp, len(msg.Data))
			}
		}
	}()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", stats.State,
					"connects", stats.Connects,
					"messages_received", stats.MessagesReceived,
					"parse_errors", stats.ParseErrors,
					"pings_sent", stats.PingsSent,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	client.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}
