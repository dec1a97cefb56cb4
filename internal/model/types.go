package model

import "github.com/google/uuid"

// -----------------------------------------------------------------------------
// Strategy Output Types
// -----------------------------------------------------------------------------

// Signal represents a trading signal emitted by the backend strategy engine.
type Signal struct {
	ID         string  `json:"id"`          // Backend-assigned signal id
	Symbol     string  `json:"symbol"`      // e.g. "BTCUSDT"
	Direction  string  `json:"direction"`   // "LONG" or "SHORT"
	Strategy   string  `json:"strategy"`    // Originating strategy name
	Confidence float64 `json:"confidence"`  // 0.0 - 1.0
	EntryPrice float64 `json:"entry_price"` // Suggested entry
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Status     string  `json:"status"`     // "active", "executed", "expired"
	CreatedTS  int64   `json:"created_ts"` // µs since epoch
	ReceivedAt int64   `json:"-"`          // Local receive time (µs since epoch)
}

// Opportunity represents a scan result the backend considers tradeable.
type Opportunity struct {
	Symbol       string  `json:"symbol"`
	Strategy     string  `json:"strategy"`
	Score        float64 `json:"score"`      // 0.0 - 1.0 composite score
	Direction    string  `json:"direction"`  // "LONG" or "SHORT"
	CurrentPrice float64 `json:"current_price"`
	TargetPrice  float64 `json:"target_price"`
	Volume24h    float64 `json:"volume_24h"`
	DetectedTS   int64   `json:"detected_ts"` // µs since epoch
}

// -----------------------------------------------------------------------------
// Trading Types
// -----------------------------------------------------------------------------

// Position represents an open position in either trading mode.
type Position struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // "LONG" or "SHORT"
	Mode          string  `json:"mode"` // "paper" or "real"
	Strategy      string  `json:"strategy"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	Quantity      float64 `json:"quantity"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
	OpenedTS      int64   `json:"opened_ts"` // µs since epoch
	UpdatedAt     int64   `json:"updated_at"`
}

// TradeRecord represents an executed (closed) trade.
type TradeRecord struct {
	TradeID    uuid.UUID `json:"trade_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "LONG" or "SHORT"
	Mode       string    `json:"mode"` // "paper" or "real"
	Strategy   string    `json:"strategy"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	ExchangeTS int64     `json:"exchange_ts"` // Backend close time (µs since epoch)
	ReceivedAt int64     `json:"-"`           // Local receive time (µs since epoch)
}

// TradingStatus summarizes one trading engine (paper or real).
type TradingStatus struct {
	Mode          string  `json:"mode"` // "paper" or "real"
	Active        bool    `json:"active"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	OpenPositions int     `json:"open_positions"`
	TotalPnL      float64 `json:"total_pnl"`
	DailyPnL      float64 `json:"daily_pnl"`
	UpdatedAt     int64   `json:"updated_at"` // µs since epoch
}

// -----------------------------------------------------------------------------
// Analytics Types
// -----------------------------------------------------------------------------

// PerformanceSummary aggregates closed-trade statistics.
type PerformanceSummary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // 0.0 - 1.0
	TotalPnL      float64 `json:"total_pnl"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	UpdatedAt     int64   `json:"updated_at"` // µs since epoch
}

// StrategyStatus describes one strategy known to the backend.
type StrategyStatus struct {
	Name             string  `json:"name"`
	Enabled          bool    `json:"enabled"`
	Description      string  `json:"description"`
	SignalsGenerated int64   `json:"signals_generated"`
	WinRate          float64 `json:"win_rate"`
	UpdatedAt        int64   `json:"updated_at"`
}

// ScalpingSummary summarizes the scalping engine.
type ScalpingSummary struct {
	Active        bool    `json:"active"`
	OpenPositions int     `json:"open_positions"`
	TradesToday   int     `json:"trades_today"`
	PnLToday      float64 `json:"pnl_today"`
	UpdatedAt     int64   `json:"updated_at"`
}

// FlowTradingStatus summarizes the order-flow trading engine.
type FlowTradingStatus struct {
	Active      bool    `json:"active"`
	ActiveFlows int     `json:"active_flows"`
	TradesToday int     `json:"trades_today"`
	PnLToday    float64 `json:"pnl_today"`
	UpdatedAt   int64   `json:"updated_at"`
}

// LearningInsight is one recommendation from the backend's adaptive layer.
type LearningInsight struct {
	Category       string  `json:"category"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	CreatedTS      int64   `json:"created_ts"`
}

// ScanStatus reports whether a backend market scan is in progress.
// Pollers use it to tighten their interval while a scan runs.
type ScanStatus struct {
	InProgress     bool  `json:"in_progress"`
	SymbolsScanned int   `json:"symbols_scanned"`
	SymbolsTotal   int   `json:"symbols_total"`
	StartedTS      int64 `json:"started_ts"` // µs since epoch, 0 if idle
}
