package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/tradedeck/dashfeed/internal/feed"
	"github.com/tradedeck/dashfeed/internal/model"
)

// Router parses decoded feed messages and routes them to writers and the
// snapshot sink.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Buffers returns output buffers for writers to consume.
	Buffers() Buffers

	// Stats returns current router statistics.
	Stats() Stats
}

// router is the internal implementation.
type router struct {
	cfg    Config
	logger *slog.Logger

	// Input from the feed client
	input <-chan feed.Message

	// Latest-snapshot consumer (may be nil)
	sink SnapshotSink

	// Output to writers
	signalBuf *GrowableBuffer[model.Signal]
	tradeBuf  *GrowableBuffer[model.TradeRecord]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	received   int64
	routed     int64
	heartbeats int64
	parseErrs  int64
	unknown    int64
}

// New creates a new message router.
func New(cfg Config, input <-chan feed.Message, sink SnapshotSink, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:       cfg,
		logger:    logger,
		input:     input,
		sink:      sink,
		signalBuf: NewGrowableBuffer[model.Signal](cfg.SignalBufferSize),
		tradeBuf:  NewGrowableBuffer[model.TradeRecord](cfg.TradeBufferSize),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started",
		"signal_buffer", r.cfg.SignalBufferSize,
		"trade_buffer", r.cfg.TradeBufferSize,
	)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.signalBuf.Close()
	r.tradeBuf.Close()

	return nil
}

// Buffers returns output buffers for writers.
func (r *router) Buffers() Buffers {
	return Buffers{
		Signals: r.signalBuf,
		Trades:  r.tradeBuf,
	}
}

// Stats returns current statistics.
func (r *router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		Heartbeats:       r.heartbeats,
		ParseErrors:      r.parseErrs,
		UnknownMessages:  r.unknown,
		SignalBuffer:     r.signalBuf.Stats(),
		TradeBuffer:      r.tradeBuf.Stats(),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(msg)
		}
	}
}

// route parses and routes a single message.
func (r *router) route(msg feed.Message) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	switch msg.Kind {
	case "heartbeat":
		r.mu.Lock()
		r.heartbeats++
		r.mu.Unlock()

	case "signal", "signal_update":
		var sig model.Signal
		if err := json.Unmarshal(msg.Data, &sig); err != nil {
			r.countParseError("signal", err)
			return
		}
		sig.ReceivedAt = msg.ReceivedAt.UnixMicro()

		if r.sink != nil {
			r.sink.ApplySignal(sig)
		}
		if r.signalBuf.Send(sig) {
			r.countRouted()
		}

	case "position_update":
		var pos model.Position
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			r.countParseError("position", err)
			return
		}
		if pos.UpdatedAt == 0 {
			pos.UpdatedAt = msg.ReceivedAt.UnixMicro()
		}

		if r.sink != nil {
			r.sink.ApplyPosition(pos)
		}
		r.countRouted()

	case "trade_update":
		var trade model.TradeRecord
		if err := json.Unmarshal(msg.Data, &trade); err != nil {
			r.countParseError("trade", err)
			return
		}
		trade.ReceivedAt = msg.ReceivedAt.UnixMicro()

		if r.sink != nil {
			r.sink.ApplyTrade(trade)
		}
		if r.tradeBuf.Send(trade) {
			r.countRouted()
		}

	default:
		r.mu.Lock()
		r.unknown++
		r.mu.Unlock()
		r.logger.Debug("skipping message kind", "kind", msg.Kind)
	}
}

func (r *router) countRouted() {
	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
}

func (r *router) countParseError(kind string, err error) {
	r.mu.Lock()
	r.parseErrs++
	r.mu.Unlock()
	r.logger.Warn("failed to parse message", "kind", kind, "error", err)
}
