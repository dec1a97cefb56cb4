package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tradedeck/dashfeed/internal/model"
	"github.com/tradedeck/dashfeed/internal/router"
)

// TradeWriter consumes closed trades from the router buffer and writes to the trades table.
type TradeWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from Message Router
	input *router.GrowableBuffer[model.TradeRecord]

	// Database
	db DB

	// Batching
	batch       []tradeRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewTradeWriter creates a new TradeWriter.
func NewTradeWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[model.TradeRecord],
	db DB,
	logger *slog.Logger,
) *TradeWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]tradeRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming trades and writing to the database.
func (w *TradeWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("trade writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *TradeWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping trade writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("trade writer stopped")
	case <-ctx.Done():
		w.logger.Warn("trade writer stop timed out")
	}

	// Drain whatever the consume loop never got to, then flush on the
	// caller's context; w.ctx is already cancelled and would abort the
	// closing batch.
	for {
		trade, ok := w.input.TryReceive()
		if !ok {
			break
		}
		w.batchMu.Lock()
		w.batch = append(w.batch, w.transform(trade))
		w.batchMu.Unlock()
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *TradeWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *TradeWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			trade, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleTrade(trade)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *TradeWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleTrade transforms and adds a trade to the batch.
func (w *TradeWriter) handleTrade(trade model.TradeRecord) {
	row := w.transform(trade)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a TradeRecord to a tradeRow.
func (w *TradeWriter) transform(trade model.TradeRecord) tradeRow {
	return tradeRow{
		TradeID:    trade.TradeID.String(),
		Symbol:     trade.Symbol,
		Side:       trade.Side,
		Mode:       trade.Mode,
		Strategy:   trade.Strategy,
		EntryPrice: trade.EntryPrice,
		ExitPrice:  trade.ExitPrice,
		Quantity:   trade.Quantity,
		PnL:        trade.PnL,
		ExchangeTS: trade.ExchangeTS,
		ReceivedAt: trade.ReceivedAt,
	}
}

// flush writes the current batch to the database.
func (w *TradeWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]tradeRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed trades",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TradeWriter) batchInsert(ctx context.Context, rows []tradeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO trades (trade_id, symbol, side, mode, strategy, entry_price, exit_price, quantity, pnl, exchange_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (trade_id) DO NOTHING
		`, r.TradeID, r.Symbol, r.Side, r.Mode, r.Strategy, r.EntryPrice, r.ExitPrice, r.Quantity, r.PnL, r.ExchangeTS, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
