package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tradedeck/dashfeed/internal/model"
)

// Feed names. One snapshot exists per feed.
const (
	FeedSignals       = "signals"
	FeedOpportunities = "opportunities"
	FeedPositions     = "positions"
	FeedTrades        = "trades"
	FeedPerformance   = "performance"
	FeedScalping      = "scalping"
	FeedStrategies    = "strategies"
	FeedLearning      = "learning"
	FeedPaperTrading  = "paper_trading"
	FeedRealTrading   = "real_trading"
	FeedFlowTrading   = "flow_trading"
	FeedSettings      = "settings"
)

// AllFeeds returns every feed name, in serving order.
func AllFeeds() []string {
	return []string{
		FeedSignals, FeedOpportunities, FeedPositions, FeedTrades,
		FeedPerformance, FeedScalping, FeedStrategies, FeedLearning,
		FeedPaperTrading, FeedRealTrading, FeedFlowTrading, FeedSettings,
	}
}

// Caps on the merged live lists. REST snapshots replace these wholesale.
const (
	signalLimit = 100
	tradeLimit  = 100
)

// Snapshot is the latest state of one feed.
type Snapshot struct {
	Feed      string `json:"feed"`
	Data      any    `json:"data"`
	Source    string `json:"source"`     // "ws" or "rest"
	UpdatedAt int64  `json:"updated_at"` // µs since epoch
}

// Store holds the latest snapshot per feed.
type Store struct {
	logger *slog.Logger
	mirror *RedisMirror // nil when Redis is disabled

	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// New creates a snapshot store. mirror may be nil.
func New(mirror *RedisMirror, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		logger:    logger,
		mirror:    mirror,
		snapshots: make(map[string]Snapshot),
	}
}

// Set replaces a feed's snapshot.
func (s *Store) Set(feedName string, data any, source string) {
	snap := Snapshot{
		Feed:      feedName,
		Data:      data,
		Source:    source,
		UpdatedAt: time.Now().UnixMicro(),
	}

	s.mu.Lock()
	s.snapshots[feedName] = snap
	s.mu.Unlock()

	s.mirrorSnapshot(snap)
}

// Restore installs a snapshot that was previously mirrored to Redis. It
// keeps the mirrored source and timestamp, and never replaces newer data
// already in the store.
func (s *Store) Restore(raw []byte) (string, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return "", err
	}
	if snap.Feed == "" {
		return "", errors.New("mirrored snapshot has no feed name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.snapshots[snap.Feed]; ok && cur.UpdatedAt >= snap.UpdatedAt {
		return snap.Feed, nil
	}
	s.snapshots[snap.Feed] = snap
	return snap.Feed, nil
}

// WarmFromMirror restores mirrored snapshots for the named feeds so a
// restarted instance can serve data before its first REST cycle completes.
// Returns the number of feeds restored.
func (s *Store) WarmFromMirror(ctx context.Context, feeds []string) int {
	if s.mirror == nil {
		return 0
	}

	restored := 0
	for _, name := range feeds {
		raw, err := s.mirror.Load(ctx, name)
		if err != nil {
			s.logger.Debug("mirror read failed", "feed", name, "error", err)
			continue
		}
		if raw == nil {
			continue
		}
		if _, err := s.Restore(raw); err != nil {
			s.logger.Debug("mirrored snapshot unreadable", "feed", name, "error", err)
			continue
		}
		restored++
	}
	return restored
}

// Get returns a feed's snapshot.
func (s *Store) Get(feedName string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[feedName]
	return snap, ok
}

// Feeds returns the names of all feeds with a snapshot.
func (s *Store) Feeds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	return names
}

// ApplySignal prepends a live signal into the signals snapshot.
func (s *Store) ApplySignal(sig model.Signal) {
	s.mu.Lock()
	existing, _ := s.snapshots[FeedSignals].Data.([]model.Signal)

	signals := make([]model.Signal, 0, len(existing)+1)
	signals = append(signals, sig)
	for _, cur := range existing {
		if cur.ID == sig.ID {
			continue // replaced by the newer record
		}
		signals = append(signals, cur)
		if len(signals) >= signalLimit {
			break
		}
	}

	snap := Snapshot{
		Feed:      FeedSignals,
		Data:      signals,
		Source:    "ws",
		UpdatedAt: time.Now().UnixMicro(),
	}
	s.snapshots[FeedSignals] = snap
	s.mu.Unlock()

	s.mirrorSnapshot(snap)
}

// ApplyPosition upserts a live position into the positions snapshot.
func (s *Store) ApplyPosition(pos model.Position) {
	s.mu.Lock()
	existing, _ := s.snapshots[FeedPositions].Data.([]model.Position)

	positions := make([]model.Position, 0, len(existing)+1)
	replaced := false
	for _, cur := range existing {
		if cur.ID == pos.ID {
			positions = append(positions, pos)
			replaced = true
			continue
		}
		positions = append(positions, cur)
	}
	if !replaced {
		positions = append(positions, pos)
	}

	snap := Snapshot{
		Feed:      FeedPositions,
		Data:      positions,
		Source:    "ws",
		UpdatedAt: time.Now().UnixMicro(),
	}
	s.snapshots[FeedPositions] = snap
	s.mu.Unlock()

	s.mirrorSnapshot(snap)
}

// ApplyTrade prepends a closed trade into the trades snapshot.
func (s *Store) ApplyTrade(trade model.TradeRecord) {
	s.mu.Lock()
	existing, _ := s.snapshots[FeedTrades].Data.([]model.TradeRecord)

	trades := make([]model.TradeRecord, 0, len(existing)+1)
	trades = append(trades, trade)
	for _, cur := range existing {
		if cur.TradeID == trade.TradeID {
			continue // backend re-emit, replaced by the newer record
		}
		trades = append(trades, cur)
		if len(trades) >= tradeLimit {
			break
		}
	}

	snap := Snapshot{
		Feed:      FeedTrades,
		Data:      trades,
		Source:    "ws",
		UpdatedAt: time.Now().UnixMicro(),
	}
	s.snapshots[FeedTrades] = snap
	s.mu.Unlock()

	s.mirrorSnapshot(snap)
}

// mirrorSnapshot pushes a snapshot to Redis, best-effort.
func (s *Store) mirrorSnapshot(snap Snapshot) {
	if s.mirror == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Debug("failed to marshal snapshot for mirror", "feed", snap.Feed, "error", err)
		return
	}

	s.mirror.Store(snap.Feed, data)
}
