package fix

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DispatcherConfig bounds calls to a Suggester.
type DispatcherConfig struct {
	// Concurrency caps in-flight calls. Defaults to 4.
	Concurrency int
	// RatePerSecond caps call starts; zero or less means unlimited.
	RatePerSecond float64
	// Timeout bounds a single call. Defaults to 30s.
	Timeout time.Duration
}

// Dispatcher runs suggestion calls under its own concurrency cap, rate
// limit and per-call timeout, independent of any file worker pool.
type Dispatcher struct {
	suggester Suggester
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDispatcher wraps s. A nil logger discards output.
func NewDispatcher(s Suggester, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Dispatcher{
		suggester: s,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:   rate.NewLimiter(limit, cfg.Concurrency),
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Suggest blocks until a slot is free and returns the first suggestion, or a
// placeholder if the call fails, times out or ctx is cancelled.
func (d *Dispatcher) Suggest(ctx context.Context, req Request) string {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return Unavailable(err)
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	if err := d.limiter.Wait(cctx); err != nil {
		cancel()
		d.sem.Release(1)
		return Unavailable(err)
	}

	// The slot stays taken until the backend returns, even past the timeout.
	done := make(chan []string, 1)
	go func() {
		defer d.sem.Release(1)
		defer cancel()
		done <- d.suggester.Suggest(cctx, req)
	}()

	select {
	case res := <-done:
		if len(res) == 0 {
			return ""
		}
		if IsUnavailable(res[0]) {
			d.logger.Debug("fix suggestion failed", zap.String("reason", res[0]))
		}
		return res[0]
	case <-cctx.Done():
		d.logger.Debug("fix suggestion timed out", zap.Duration("timeout", d.timeout))
		return Unavailable(cctx.Err())
	}
}

// Batch groups background suggestion calls so a caller can wait for just
// its own tasks.
type Batch struct {
	d  *Dispatcher
	wg sync.WaitGroup
}

// Batch starts an empty batch on d.
func (d *Dispatcher) Batch() *Batch {
	return &Batch{d: d}
}

// Go runs Suggest in the background and hands the result to apply. Callers
// must not read what apply writes until Wait returns.
func (b *Batch) Go(ctx context.Context, req Request, apply func(string)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		apply(b.d.Suggest(ctx, req))
	}()
}

// Wait blocks until every task started with Go has finished.
func (b *Batch) Wait() {
	b.wg.Wait()
}
