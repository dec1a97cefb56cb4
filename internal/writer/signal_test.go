package writer

import (
	"testing"

	"github.com/tradedeck/dashfeed/internal/model"
	"github.com/tradedeck/dashfeed/internal/router"
)

func TestSignalTransform(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := router.NewGrowableBuffer[model.Signal](10)
	w := NewSignalWriter(cfg, input, nil, nil)

	sig := model.Signal{
		ID:         "sig-42",
		Symbol:     "BTCUSDT",
		Direction:  "LONG",
		Strategy:   "momentum",
		Confidence: 0.82,
		EntryPrice: 64250.5,
		StopLoss:   63000,
		TakeProfit: 67000,
		Status:     "active",
		CreatedTS:  1705320000000000,
		ReceivedAt: 1705320000123456,
	}

	row := w.transform(sig)

	if row.SignalID != "sig-42" {
		t.Errorf("SignalID = %q, want sig-42", row.SignalID)
	}
	if row.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", row.Symbol)
	}
	if row.Direction != "LONG" {
		t.Errorf("Direction = %q, want LONG", row.Direction)
	}
	if row.Confidence != 0.82 {
		t.Errorf("Confidence = %v, want 0.82", row.Confidence)
	}
	if row.EntryPrice != 64250.5 {
		t.Errorf("EntryPrice = %v, want 64250.5", row.EntryPrice)
	}
	if row.CreatedTS != 1705320000000000 {
		t.Errorf("CreatedTS = %d, want 1705320000000000", row.CreatedTS)
	}
	if row.ReceivedAt != 1705320000123456 {
		t.Errorf("ReceivedAt = %d, want 1705320000123456", row.ReceivedAt)
	}
}

func TestSignalBatchAccumulation(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := router.NewGrowableBuffer[model.Signal](10)
	w := NewSignalWriter(cfg, input, nil, nil)

	for i := 0; i < 3; i++ {
		w.batchMu.Lock()
		w.batch = append(w.batch, w.transform(model.Signal{ID: "sig"}))
		w.batchMu.Unlock()
	}

	w.batchMu.Lock()
	got := len(w.batch)
	w.batchMu.Unlock()

	if got != 3 {
		t.Errorf("batch length = %d, want 3", got)
	}
}
