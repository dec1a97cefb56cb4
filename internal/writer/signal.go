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

// SignalWriter consumes signals from the router buffer and writes to the signals table.
type SignalWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from Message Router
	input *router.GrowableBuffer[model.Signal]

	// Database
	db DB

	// Batching
	batch       []signalRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewSignalWriter creates a new SignalWriter.
func NewSignalWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[model.Signal],
	db DB,
	logger *slog.Logger,
) *SignalWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]signalRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming signals and writing to the database.
func (w *SignalWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("signal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *SignalWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping signal writer")

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
		w.logger.Info("signal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("signal writer stop timed out")
	}

	// Drain whatever the consume loop never got to, then flush on the
	// caller's context; w.ctx is already cancelled and would abort the
	// closing batch.
	for {
		sig, ok := w.input.TryReceive()
		if !ok {
			break
		}
		w.batchMu.Lock()
		w.batch = append(w.batch, w.transform(sig))
		w.batchMu.Unlock()
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *SignalWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *SignalWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			sig, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleSignal(sig)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *SignalWriter) flushLoop() {
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

// handleSignal transforms and adds a signal to the batch.
func (w *SignalWriter) handleSignal(sig model.Signal) {
	row := w.transform(sig)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a Signal to a signalRow.
func (w *SignalWriter) transform(sig model.Signal) signalRow {
	return signalRow{
		SignalID:   sig.ID,
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Strategy:   sig.Strategy,
		Confidence: sig.Confidence,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Status:     sig.Status,
		CreatedTS:  sig.CreatedTS,
		ReceivedAt: sig.ReceivedAt,
	}
}

// flush writes the current batch to the database.
func (w *SignalWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]signalRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed signals",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SignalWriter) batchInsert(ctx context.Context, rows []signalRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO signals (signal_id, symbol, direction, strategy, confidence, entry_price, stop_loss, take_profit, status, created_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (signal_id, created_ts) DO NOTHING
		`, r.SignalID, r.Symbol, r.Direction, r.Strategy, r.Confidence, r.EntryPrice, r.StopLoss, r.TakeProfit, r.Status, r.CreatedTS, r.ReceivedAt)
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
