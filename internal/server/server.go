package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tradedeck/dashfeed/internal/api"
	"github.com/tradedeck/dashfeed/internal/feed"
	"github.com/tradedeck/dashfeed/internal/poll"
	"github.com/tradedeck/dashfeed/internal/store"
)

// Pinger checks liveness of a backing component.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedStatus exposes the feed client's connection state.
type FeedStatus interface {
	State() feed.State
	Stats() feed.ClientStats
}

// Config holds server settings.
type Config struct {
	Port int
}

// Deps are the components the server reads from. Store is required; every
// other field may be nil, and the matching endpoints or health components
// simply disappear.
type Deps struct {
	Store   *store.Store
	Feed    FeedStatus
	Backend *api.Client
	Pollers []*poll.Poller
	DB      Pinger
	Redis   Pinger
}

// Server serves stored snapshots to dashboard clients and proxies the few
// control actions the dashboard needs back to the backend.
type Server struct {
	cfg    Config
	logger *slog.Logger

	store   *store.Store
	feed    FeedStatus
	backend *api.Client
	pollers []*poll.Poller
	db      Pinger
	redis   Pinger

	httpServer *http.Server
}

// New creates a server.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   deps.Store,
		feed:    deps.Feed,
		backend: deps.Backend,
		pollers: deps.Pollers,
		db:      deps.DB,
		redis:   deps.Redis,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving. It returns once the listener goroutine is running.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("http server started", "port", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.httpServer.Shutdown(ctx)
}

// routes builds the request mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/signals", s.handleSnapshot(store.FeedSignals))
	mux.HandleFunc("GET /api/opportunities", s.handleSnapshot(store.FeedOpportunities))
	mux.HandleFunc("GET /api/positions", s.handleSnapshot(store.FeedPositions))
	mux.HandleFunc("GET /api/trades", s.handleSnapshot(store.FeedTrades))
	mux.HandleFunc("GET /api/performance", s.handleSnapshot(store.FeedPerformance))
	mux.HandleFunc("GET /api/scalping", s.handleSnapshot(store.FeedScalping))
	mux.HandleFunc("GET /api/strategies", s.handleSnapshot(store.FeedStrategies))
	mux.HandleFunc("GET /api/learning", s.handleSnapshot(store.FeedLearning))
	mux.HandleFunc("GET /api/trading/paper", s.handleSnapshot(store.FeedPaperTrading))
	mux.HandleFunc("GET /api/trading/real", s.handleSnapshot(store.FeedRealTrading))
	mux.HandleFunc("GET /api/flow-trading", s.handleSnapshot(store.FeedFlowTrading))
	mux.HandleFunc("GET /api/settings", s.handleSnapshot(store.FeedSettings))
	mux.HandleFunc("GET /api/feed/status", s.handleFeedStatus)
	mux.HandleFunc("POST /api/trading/{mode}/start", s.handleTradingAction("start"))
	mux.HandleFunc("POST /api/trading/{mode}/stop", s.handleTradingAction("stop"))
	mux.HandleFunc("POST /api/trades/execute", s.handleExecuteTrade)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// handleSnapshot serves the latest snapshot of one feed.
func (s *Server) handleSnapshot(feedName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.store.Get(feedName)
		if !ok {
			writeError(w, http.StatusNotFound, "no data yet for "+feedName)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "success",
			"data":       snap.Data,
			"source":     snap.Source,
			"updated_at": snap.UpdatedAt,
		})
	}
}

// handleFeedStatus reports the live feed connection state.
func (s *Server) handleFeedStatus(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusNotFound, "feed disabled")
		return
	}

	stats := s.feed.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"state":             stats.State.String(),
			"attempts":          stats.Attempts,
			"connects":          stats.Connects,
			"messages_received": stats.MessagesReceived,
			"parse_errors":      stats.ParseErrors,
			"pings_sent":        stats.PingsSent,
			"last_connected_at": stats.LastConnectedAt,
		},
	})
}

// handleTradingAction proxies engine start/stop requests to the backend.
func (s *Server) handleTradingAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.backend == nil {
			writeError(w, http.StatusNotFound, "backend control disabled")
			return
		}

		mode := r.PathValue("mode")
		if mode != "paper" && mode != "real" {
			writeError(w, http.StatusBadRequest, "mode must be paper or real")
			return
		}

		var (
			resp *api.ActionResponse
			err  error
		)
		if action == "start" {
			resp, err = s.backend.StartTrading(r.Context(), mode)
		} else {
			resp, err = s.backend.StopTrading(r.Context(), mode)
		}

		s.writeActionResult(w, action+" "+mode, resp, err)
	}
}

// handleExecuteTrade proxies a manual trade execution to the backend.
func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusNotFound, "backend control disabled")
		return
	}

	var req api.ExecuteTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SignalID == "" {
		writeError(w, http.StatusBadRequest, "signal_id is required")
		return
	}
	if req.Mode != "paper" && req.Mode != "real" {
		writeError(w, http.StatusBadRequest, "mode must be paper or real")
		return
	}

	resp, err := s.backend.ExecuteTrade(r.Context(), req)
	s.writeActionResult(w, "execute trade", resp, err)
}

// writeActionResult maps a backend action outcome onto our response envelope.
// A rejection carries the backend's own message; transport failures carry the
// user-facing reason string.
func (s *Server) writeActionResult(w http.ResponseWriter, action string, resp *api.ActionResponse, err error) {
	if err != nil {
		msg := api.Reason(err)
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		s.logger.Warn("backend action failed", "action", action, "error", err)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": resp.Message,
	})
}

// handleHealth reports component status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	// Check database
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}
	}

	// Check redis mirror
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}
	}

	// Check feed connection
	if s.feed != nil {
		state := s.feed.State()
		health.Components["feed"] = state.String()
		if state != feed.StateConnected && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}

	// Check pollers. LastError clears on success, so a non-empty value means
	// the most recent cycle failed.
	if len(s.pollers) > 0 {
		failing := make(map[string]string)
		for _, p := range s.pollers {
			if stats := p.Stats(); stats.LastError != "" {
				failing[p.Name()] = stats.LastError
			}
		}
		if len(failing) > 0 {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["pollers"] = map[string]any{
				"status":  "failing",
				"total":   len(s.pollers),
				"failing": failing,
			}
		} else {
			health.Components["pollers"] = "ok"
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  msg,
	})
}
