package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradedeck/dashfeed/internal/api"
	"github.com/tradedeck/dashfeed/internal/config"
	"github.com/tradedeck/dashfeed/internal/database"
	"github.com/tradedeck/dashfeed/internal/feed"
	"github.com/tradedeck/dashfeed/internal/poll"
	"github.com/tradedeck/dashfeed/internal/router"
	"github.com/tradedeck/dashfeed/internal/server"
	"github.com/tradedeck/dashfeed/internal/store"
	"github.com/tradedeck/dashfeed/internal/version"
	"github.com/tradedeck/dashfeed/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/dashfeed.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dashfeed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"backend_url", cfg.Backend.RestURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Optional Redis snapshot mirror
	mirror := store.NewRedisMirror(cfg.Redis, logger)
	if mirror != nil {
		if err := mirror.Ping(ctx); err != nil {
			logger.Warn("redis mirror unreachable, snapshots stay memory-only until it recovers", "error", err)
		} else {
			logger.Info("redis mirror connected", "address", cfg.Redis.Address)
		}
		defer mirror.Close()
	}

	// Snapshot store
	st := store.New(mirror, logger)

	// REST API client
	apiClient := api.NewClient(
		cfg.Backend.RestURL,
		cfg.Backend.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Backend.Timeout),
		api.WithRetries(cfg.Backend.MaxRetries, time.Second),
	)

	// Warm the store before serving so the dashboard never starts empty when
	// the backend is reachable. Failures here are logged, not fatal.
	if err := warmStore(ctx, apiClient, st, logger); err != nil {
		logger.Warn("store warm-up incomplete", "error", err)
	}

	// Live feed client
	feedClient := feed.NewClient(feed.ClientConfig{
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

	if err := feedClient.Start(ctx); err != nil {
		logger.Error("failed to start feed client", "error", err)
		os.Exit(1)
	}

	// Log feed state transitions
	go func() {
		for change := range feedClient.States() {
			logger.Info("feed state changed",
				"from", change.From,
				"to", change.To,
				"error", change.Err,
			)
		}
	}()

	// Message router: feed -> store + writer buffers
	msgRouter := router.New(router.Config{
		SignalBufferSize: cfg.Feed.BufferSize,
		TradeBufferSize:  cfg.Feed.BufferSize,
	}, feedClient.Messages(), st, logger)

	if err := msgRouter.Start(ctx); err != nil {
		logger.Error("failed to start message router", "error", err)
		os.Exit(1)
	}

	// Batch writers: buffers -> Postgres
	writerCfg := writer.WriterConfig{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
	}
	buffers := msgRouter.Buffers()

	signalWriter := writer.NewSignalWriter(writerCfg, buffers.Signals, db, logger)
	if err := signalWriter.Start(ctx); err != nil {
		logger.Error("failed to start signal writer", "error", err)
		os.Exit(1)
	}

	tradeWriter := writer.NewTradeWriter(writerCfg, buffers.Trades, db, logger)
	if err := tradeWriter.Start(ctx); err != nil {
		logger.Error("failed to start trade writer", "error", err)
		os.Exit(1)
	}

	// REST pollers
	pollers := startPollers(ctx, cfg, apiClient, st, logger)

	// Dashboard-facing HTTP server. The mirror is only handed over when it
	// exists so the health endpoint skips the redis component entirely.
	deps := server.Deps{
		Store:   st,
		Feed:    feedClient,
		Backend: apiClient,
		Pollers: pollers,
		DB:      db,
	}
	if mirror != nil {
		deps.Redis = mirror
	}
	srv := server.New(server.Config{Port: cfg.Server.Port}, deps, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("dashfeed running",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop intake first, then drain the pipeline, then stop serving.
	feedClient.Stop(shutdownCtx)
	for _, p := range pollers {
		p.Stop(shutdownCtx)
	}
	msgRouter.Stop(shutdownCtx)
	signalWriter.Stop(shutdownCtx)
	tradeWriter.Stop(shutdownCtx)
	srv.Stop(shutdownCtx)

	logger.Info("dashfeed stopped")
}

// warmStore restores mirrored snapshots, then fetches every REST feed once,
// concurrently, so the store has data before the server starts. Fresh REST
// data overwrites whatever the mirror provided.
func warmStore(ctx context.Context, apiClient *api.Client, st *store.Store, logger *slog.Logger) error {
	if n := st.WarmFromMirror(ctx, store.AllFeeds()); n > 0 {
		logger.Info("restored mirrored snapshots", "feeds", n)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, f := range restFetchers(apiClient, st) {
		g.Go(func() error { return f.fetch(ctx) })
	}

	start := time.Now()
	err := g.Wait()
	logger.Info("store warm-up finished",
		"feeds", len(st.Feeds()),
		"duration", time.Since(start),
	)
	return err
}

// restFetcher binds one backend endpoint to its snapshot feed.
type restFetcher struct {
	name  string
	fetch poll.FetchFunc
}

// restFetchers builds the fetch table shared by warm-up and the pollers.
func restFetchers(apiClient *api.Client, st *store.Store) []restFetcher {
	return []restFetcher{
		{store.FeedSignals, func(ctx context.Context) error {
			signals, err := apiClient.GetSignals(ctx, 100)
			if err != nil {
				return err
			}
			st.Set(store.FeedSignals, signals, "rest")
			return nil
		}},
		{store.FeedOpportunities, func(ctx context.Context) error {
			opps, err := apiClient.GetOpportunities(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedOpportunities, opps, "rest")
			return nil
		}},
		{store.FeedPositions, func(ctx context.Context) error {
			positions, err := apiClient.GetPositions(ctx, "")
			if err != nil {
				return err
			}
			st.Set(store.FeedPositions, positions, "rest")
			return nil
		}},
		{store.FeedPerformance, func(ctx context.Context) error {
			perf, err := apiClient.GetPerformance(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedPerformance, *perf, "rest")
			return nil
		}},
		{store.FeedStrategies, func(ctx context.Context) error {
			strategies, err := apiClient.GetStrategies(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedStrategies, strategies, "rest")
			return nil
		}},
		{store.FeedScalping, func(ctx context.Context) error {
			summary, err := apiClient.GetScalpingSummary(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedScalping, *summary, "rest")
			return nil
		}},
		{store.FeedLearning, func(ctx context.Context) error {
			insights, err := apiClient.GetLearningInsights(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedLearning, insights, "rest")
			return nil
		}},
		{store.FeedPaperTrading, func(ctx context.Context) error {
			status, err := apiClient.GetTradingStatus(ctx, "paper")
			if err != nil {
				return err
			}
			st.Set(store.FeedPaperTrading, *status, "rest")
			return nil
		}},
		{store.FeedRealTrading, func(ctx context.Context) error {
			status, err := apiClient.GetTradingStatus(ctx, "real")
			if err != nil {
				return err
			}
			st.Set(store.FeedRealTrading, *status, "rest")
			return nil
		}},
		{store.FeedFlowTrading, func(ctx context.Context) error {
			status, err := apiClient.GetFlowTradingStatus(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedFlowTrading, *status, "rest")
			return nil
		}},
		{store.FeedSettings, func(ctx context.Context) error {
			settings, err := apiClient.GetSettings(ctx)
			if err != nil {
				return err
			}
			st.Set(store.FeedSettings, settings, "rest")
			return nil
		}},
	}
}

// startPollers launches one poller per REST feed plus the scan-status poller
// that drives the adaptive interval.
func startPollers(ctx context.Context, cfg *config.Config, apiClient *api.Client, st *store.Store, logger *slog.Logger) []*poll.Poller {
	pollCfg := poll.Config{
		Interval:     cfg.Pollers.Interval,
		FastInterval: cfg.Pollers.FastInterval,
		Timeout:      cfg.Pollers.Timeout,
		Retries:      cfg.Pollers.Retries,
		RetryDelay:   cfg.Pollers.RetryDelay,
	}

	// scanActive flips the data pollers to their fast interval while the
	// backend reports a scan in progress.
	var scanActive scanFlag

	var pollers []*poll.Poller
	for _, f := range restFetchers(apiClient, st) {
		p := poll.New(f.name, pollCfg, f.fetch, scanActive.get, logger)
		if err := p.Start(ctx); err != nil {
			logger.Error("failed to start poller", "poller", f.name, "error", err)
			os.Exit(1)
		}
		pollers = append(pollers, p)
	}

	// The scan-status poller always runs at the fast interval; it is the
	// source of the adaptive signal, so it cannot wait for itself.
	scanCfg := pollCfg
	scanCfg.Interval = pollCfg.FastInterval
	scanPoller := poll.New("scan_status", scanCfg, func(ctx context.Context) error {
		status, err := apiClient.GetScanStatus(ctx)
		if err != nil {
			return err
		}
		scanActive.set(status.InProgress)
		return nil
	}, nil, logger)
	if err := scanPoller.Start(ctx); err != nil {
		logger.Error("failed to start poller", "poller", "scan_status", "error", err)
		os.Exit(1)
	}
	pollers = append(pollers, scanPoller)

	return pollers
}

// scanFlag is shared between the scan-status poller and the data pollers.
type scanFlag struct {
	v atomic.Bool
}

func (f *scanFlag) set(active bool) { f.v.Store(active) }
func (f *scanFlag) get() bool       { return f.v.Load() }
