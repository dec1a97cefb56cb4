package router

import "github.com/tradedeck/dashfeed/internal/model"

// Config holds configuration for the message router.
type Config struct {
	// Output buffer sizes
	SignalBufferSize int // Default: 1000
	TradeBufferSize  int // Default: 1000
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		SignalBufferSize: 1000,
		TradeBufferSize:  1000,
	}
}

// Buffers provides access to output buffers for writers to consume.
type Buffers struct {
	Signals *GrowableBuffer[model.Signal]
	Trades  *GrowableBuffer[model.TradeRecord]
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64
	MessagesRouted   int64
	Heartbeats       int64
	ParseErrors      int64
	UnknownMessages  int64
	SignalBuffer     BufferStats
	TradeBuffer      BufferStats
}

// SnapshotSink receives every routed record to keep the latest dashboard
// view current. Implemented by the store.
type SnapshotSink interface {
	ApplySignal(model.Signal)
	ApplyPosition(model.Position)
	ApplyTrade(model.TradeRecord)
}
