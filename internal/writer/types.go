package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// DB is the slice of pgxpool.Pool the writers use. Tests substitute a
// recording implementation.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// signalRow represents a row to be inserted into the signals table.
type signalRow struct {
	SignalID   string
	Symbol     string
	Direction  string
	Strategy   string
	Confidence float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Status     string
	CreatedTS  int64 // Microseconds
	ReceivedAt int64 // Microseconds
}

// tradeRow represents a row to be inserted into the trades table.
type tradeRow struct {
	TradeID    string // UUID
	Symbol     string
	Side       string
	Mode       string
	Strategy   string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	ExchangeTS int64 // Microseconds
	ReceivedAt int64 // Microseconds
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
