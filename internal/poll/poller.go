package poll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// FetchFunc performs one fetch cycle. Implementations fetch from the backend
// and store the result; the poller only cares about success or failure.
type FetchFunc func(ctx context.Context) error

// ScanStateFunc reports whether a backend market scan is in progress.
// While it returns true the poller uses its fast interval.
type ScanStateFunc func() bool

// Config holds poller settings.
type Config struct {
	Interval     time.Duration // Normal interval between cycles
	FastInterval time.Duration // Interval while a backend scan runs
	Timeout      time.Duration // Per-cycle timeout (covers all retries)
	Retries      int           // Retry count after a failed fetch
	RetryDelay   time.Duration // Fixed delay between retries
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		FastInterval: 5 * time.Second,
		Timeout:      15 * time.Second,
		Retries:      2,
		RetryDelay:   2 * time.Second,
	}
}

// Stats contains runtime statistics for one poller.
type Stats struct {
	Cycles        int64
	Successes     int64
	Failures      int64
	Retries       int64
	SkippedTicks  int64
	LastSuccessAt int64 // µs since epoch, 0 if never
	LastError     string
}

// Poller runs one fetch function on an adaptive interval.
type Poller struct {
	name       string
	cfg        Config
	fetch      FetchFunc
	scanActive ScanStateFunc // may be nil
	logger     *slog.Logger

	// Overlap guard: a tick that fires mid-cycle is skipped, not queued.
	inFlight atomic.Bool

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a poller. scanActive may be nil for pollers that always use
// the normal interval.
func New(name string, cfg Config, fetch FetchFunc, scanActive ScanStateFunc, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		name:       name,
		cfg:        cfg,
		fetch:      fetch,
		scanActive: scanActive,
		logger:     logger.With("poller", name),
	}
}

// Start begins polling. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"fast_interval", p.cfg.FastInterval,
	)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	p.logger.Info("stopping poller")

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
	case <-ctx.Done():
		p.logger.Warn("poller stop timed out")
	}

	return nil
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Name returns the poller's name.
func (p *Poller) Name() string {
	return p.name
}

// pollLoop ticks on the current interval, re-evaluated after every cycle so
// the cadence tightens as soon as a scan starts.
func (p *Poller) pollLoop() {
	defer p.wg.Done()

	p.tick()

	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-timer.C:
			p.tick()
			timer.Reset(p.interval())
		}
	}
}

// interval returns the delay until the next cycle.
func (p *Poller) interval() time.Duration {
	if p.scanActive != nil && p.scanActive() {
		return p.cfg.FastInterval
	}
	return p.cfg.Interval
}

// tick starts one cycle unless the previous one is still running.
func (p *Poller) tick() {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.mu.Lock()
		p.stats.SkippedTicks++
		p.mu.Unlock()
		p.logger.Debug("tick skipped, previous cycle still running")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.runCycle()
	}()
}

// runCycle performs one fetch with fixed-count, fixed-delay retries.
func (p *Poller) runCycle() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	p.mu.Lock()
	p.stats.Cycles++
	p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			p.mu.Lock()
			p.stats.Retries++
			p.mu.Unlock()

			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(p.cfg.RetryDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}

		lastErr = p.fetch(ctx)
		if lastErr == nil {
			p.mu.Lock()
			p.stats.Successes++
			p.stats.LastSuccessAt = time.Now().UnixMicro()
			p.stats.LastError = ""
			p.mu.Unlock()
			return
		}

		p.logger.Debug("fetch failed",
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	p.mu.Lock()
	p.stats.Failures++
	p.stats.LastError = lastErr.Error()
	p.mu.Unlock()

	p.logger.Warn("poll cycle failed",
		"retries", p.cfg.Retries,
		"error", lastErr,
	)
}
