package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrRunnerNotStarted = errors.New("runner not started")

// Runner owns the lifecycle of an engine: one tail poll and at most one backfill at a time.
type Runner struct {
	engine *Engine
	from   time.Time
	logger *zap.Logger

	mu             sync.Mutex
	ctx            context.Context
	stopListen     func()
	cancelBackfill context.CancelFunc
	backfillDone   chan struct{}
}

// NewRunner creates a runner that backfills from the given date whenever sync is (re)started
func NewRunner(e *Engine, from time.Time, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		engine: e,
		from:   from,
		logger: logger,
	}
}

// Start begins tailing and backfilling, ctx bounds every run started by the runner
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx = ctx
	r.resume()
}

// Switch changes the account of the feed: stop, set account, clear, then resume sync
func (r *Runner) Switch(account string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return ErrRunnerNotStarted
	}

	r.stop()

	r.engine.SetAccount(account)
	r.engine.ClearTransfers()

	r.logger.Info("switched account", zap.String("account", account))

	r.resume()

	return nil
}

// Backfill starts a backfill from date, replacing the one in progress if any
func (r *Runner) Backfill(date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return ErrRunnerNotStarted
	}

	r.backfill(date)

	return nil
}

// Close stops tailing and waits for the current backfill to return
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stop()
}

func (r *Runner) resume() {
	r.stopListen = r.engine.Listen(r.ctx)
	r.backfill(r.from)
}

func (r *Runner) stop() {
	if r.stopListen != nil {
		r.stopListen()
		r.stopListen = nil
	}

	r.cancelCurrentBackfill()
}

func (r *Runner) backfill(date time.Time) {
	r.cancelCurrentBackfill()

	ctx, cancel := context.WithCancel(r.ctx)
	done := make(chan struct{})

	r.cancelBackfill = cancel
	r.backfillDone = done

	go func() {
		defer close(done)
		defer cancel()

		err := r.engine.LoadFrom(ctx, date)
		if err != nil {
			r.logger.Debug("backfill returned", zap.Time("from", date), zap.Error(err))
			return
		}

		r.logger.Info("backfill done", zap.Time("from", date))
	}()
}

// cancelCurrentBackfill waits for the run to return so it cannot lower the loading flag
// of the next one
func (r *Runner) cancelCurrentBackfill() {
	if r.cancelBackfill == nil {
		return
	}

	r.cancelBackfill()
	<-r.backfillDone

	r.cancelBackfill = nil
	r.backfillDone = nil
}
