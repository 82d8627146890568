package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/pkg/indexer"
	"go.uber.org/zap"
)

const (
	ListenInterval      = 1500 * time.Millisecond
	ListenFetchLimit    = 10
	LoaderFetchLimit    = 100
	MinPageDelay        = 500 * time.Millisecond
	MaxPageDelay        = 2000 * time.Millisecond
	DefaultFetchTimeout = 30 * time.Second

	auxWorkers = 4
)

// Store is the part of the merge store driven by the engine
type Store interface {
	PutTransfers(txs []*indexer.Transfer)
	ClearTransfers()
	SetDate(date time.Time)
	StartLoadingFromDate(date time.Time)
	StopLoadingFromDate()
	SetAccount(account string)
	Account() string
}

// Engine keeps a Store in sync with a primary source and the auxiliary sources routed
// to the active account.
type Engine struct {
	primary Source
	routes  Routes
	store   Store
	logger  *zap.Logger
	wm      indexer.WebhookMessager

	onNewTransfers func([]*indexer.Transfer)

	listenInterval time.Duration
	listenLimit    int
	pageSize       int
	fetchTimeout   time.Duration
	delay          func(ctx context.Context) error
	now            func() time.Time

	pool pond.Pool

	mu            sync.Mutex
	listenMaxDate time.Time
}

type Option func(*Engine)

func WithRoutes(r Routes) Option {
	return func(e *Engine) { e.routes = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMessager reports aborted backfills
func WithMessager(wm indexer.WebhookMessager) Option {
	return func(e *Engine) { e.wm = wm }
}

// WithOnNewTransfers is called with every non empty batch a tail poll delivers, before it is merged
func WithOnNewTransfers(fn func([]*indexer.Transfer)) Option {
	return func(e *Engine) { e.onNewTransfers = fn }
}

func WithListenInterval(d time.Duration) Option {
	return func(e *Engine) { e.listenInterval = d }
}

func WithPageSize(n int) Option {
	return func(e *Engine) { e.pageSize = n }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.fetchTimeout = d }
}

// WithPageDelay sets the bounds of the random pause between backfill pages
func WithPageDelay(min, max time.Duration) Option {
	return func(e *Engine) { e.delay = randomDelay(min, max) }
}

// WithDelay replaces the pause between backfill pages
func WithDelay(fn func(ctx context.Context) error) Option {
	return func(e *Engine) { e.delay = fn }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(primary Source, st Store, opts ...Option) *Engine {
	e := &Engine{
		primary:        primary,
		store:          st,
		logger:         zap.NewNop(),
		listenInterval: ListenInterval,
		listenLimit:    ListenFetchLimit,
		pageSize:       LoaderFetchLimit,
		fetchTimeout:   DefaultFetchTimeout,
		delay:          randomDelay(MinPageDelay, MaxPageDelay),
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.listenMaxDate = e.now()
	e.pool = pond.NewPool(auxWorkers)

	return e
}

// Close releases the worker pool, in-flight auxiliary fetches are allowed to finish
func (e *Engine) Close() {
	e.pool.StopAndWait()
}

// ListenMaxDate returns the date the next tail poll is anchored at
func (e *Engine) ListenMaxDate() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.listenMaxDate
}

// Listen starts polling the primary source and every auxiliary source routed to the
// current account for transfers newer than ListenMaxDate. The returned function stops all
// pollers, it can be called any number of times. A fetch in flight when it is called may
// still complete and merge.
func (e *Engine) Listen(ctx context.Context) func() {
	e.mu.Lock()
	e.listenMaxDate = e.now()
	e.mu.Unlock()

	account := e.store.Account()

	stop := make(chan struct{})

	go e.tail(ctx, stop, e.primary, e.listenInterval, e.listenLimit, account)

	for _, d := range e.routes.tail(account) {
		interval := d.Interval
		if interval <= 0 {
			interval = DefaultAuxInterval
		}

		go e.tail(ctx, stop, d.Source, interval, e.pageSize, account)
	}

	e.logger.Info("listening for new transfers",
		zap.String("account", account),
		zap.Int("auxiliary_sources", len(e.routes.tail(account))))

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}

func (e *Engine) tail(ctx context.Context, stop <-chan struct{}, src Source, interval time.Duration, limit int, account string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// stop wins over a tick that fired at the same time
			select {
			case <-stop:
				return
			default:
			}

			e.tick(ctx, src, limit, account)
		}
	}
}

func (e *Engine) tick(ctx context.Context, src Source, limit int, account string) {
	fetchedAt := e.now()

	w := Window{
		Account:  account,
		FromDate: e.ListenMaxDate(),
		Limit:    limit,
		Offset:   0,
	}

	e.logger.Debug("listening for new transfers",
		zap.String("source", src.Name()),
		zap.String("account", account),
		zap.Time("from_date", w.FromDate))

	page, err := e.fetch(ctx, src, w, metrics.ModeTail)
	if err != nil {
		e.logger.Warn("error fetching new transfers", zap.String("source", src.Name()), zap.Error(err))
		return
	}

	e.processNewTransfers(page.Transfers, fetchedAt)
}

func (e *Engine) processNewTransfers(txs []*indexer.Transfer, fetchedAt time.Time) {
	if len(txs) == 0 {
		// nothing new to add
		return
	}

	// new items, move the max date to the time of this fetch.
	// sources with coarse clocks could be missed when using the latest record's date instead.
	e.mu.Lock()
	if fetchedAt.After(e.listenMaxDate) {
		e.listenMaxDate = fetchedAt
	}
	e.mu.Unlock()

	if e.onNewTransfers != nil {
		e.onNewTransfers(txs)
	}

	e.store.PutTransfers(txs)
	metrics.RecordsMerged.WithLabelValues(metrics.ModeTail).Add(float64(len(txs)))
}

// TriggerNewTransaction merges a transfer created locally, before any source reports it
func (e *Engine) TriggerNewTransaction(tx *indexer.Transfer) {
	if e.onNewTransfers != nil {
		e.onNewTransfers([]*indexer.Transfer{tx})
	}

	e.store.PutTransfers([]*indexer.Transfer{tx})
}

// ClearTransfers empties the store and moves its cursor to now
func (e *Engine) ClearTransfers() {
	e.store.ClearTransfers()
	e.store.SetDate(e.now())
}

// SetAccount changes the account filter, it does not clear the store
func (e *Engine) SetAccount(account string) {
	e.store.SetAccount(account)
}

// LoadFrom walks the primary source page by page from date until it is exhausted. Pages
// of the auxiliary sources routed to the current account are merged along with every
// primary page. An error on the primary source stops the walk; pages already merged stay.
func (e *Engine) LoadFrom(ctx context.Context, date time.Time) error {
	account := e.store.Account()

	e.store.StartLoadingFromDate(date)
	defer e.store.StopLoadingFromDate()

	for offset := 0; ; offset += e.pageSize {
		w := Window{
			Account:  account,
			FromDate: date,
			Limit:    e.pageSize,
			Offset:   offset,
		}

		page, err := e.fetch(ctx, e.primary, w, metrics.ModeBackfill)
		metrics.BackfillPagesTotal.Inc()
		if err != nil {
			return e.abortBackfill(ctx, fmt.Errorf("backfill page at offset %d: %w", offset, err))
		}

		primaryCount := len(page.Transfers) + page.Dropped

		txs := make([]*indexer.Transfer, 0, len(page.Transfers))
		txs = append(txs, page.Transfers...)
		txs = append(txs, e.fetchAuxiliary(ctx, w)...)

		e.logger.Debug("backfill page",
			zap.String("account", account),
			zap.Int("offset", offset),
			zap.Int("primary", primaryCount),
			zap.Int("dropped", page.Dropped),
			zap.Int("total", len(txs)))

		// merge every page right away so it can be rendered progressively
		e.store.PutTransfers(txs)
		metrics.RecordsMerged.WithLabelValues(metrics.ModeBackfill).Add(float64(len(txs)))

		// auxiliary sources only supplement a page, the primary source decides when to stop
		if primaryCount == 0 || primaryCount < e.pageSize {
			return nil
		}

		err = e.delay(ctx)
		if err != nil {
			return e.abortBackfill(ctx, fmt.Errorf("backfill interrupted at offset %d: %w", offset, err))
		}
	}
}

func (e *Engine) abortBackfill(ctx context.Context, err error) error {
	metrics.BackfillAbortsTotal.Inc()

	if errors.Is(err, context.Canceled) {
		e.logger.Info("backfill cancelled", zap.Error(err))
		return err
	}

	e.logger.Error("backfill aborted", zap.Error(err))

	if e.wm != nil {
		// the run context may be the reason of the failure
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if nerr := e.wm.NotifyError(nctx, err); nerr != nil {
			e.logger.Warn("unable to notify backfill error", zap.Error(nerr))
		}
	}

	return err
}

// fetchAuxiliary fetches the window from the auxiliary sources concurrently. A failing
// source contributes nothing; the records keep the order of the routes.
func (e *Engine) fetchAuxiliary(ctx context.Context, w Window) []*indexer.Transfer {
	ds := e.routes.backfill(w.Account, w.Offset)
	if len(ds) == 0 {
		return nil
	}

	results := make([][]*indexer.Transfer, len(ds))

	group := e.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, d := range ds {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}

			page, err := e.fetch(groupCtx, d.Source, w, metrics.ModeBackfill)
			if err != nil {
				e.logger.Warn("unable to fetch auxiliary transfers",
					zap.String("source", d.Source.Name()),
					zap.Int("offset", w.Offset),
					zap.Error(err))
				return
			}

			results[i] = page.Transfers
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		e.logger.Warn("auxiliary fetch group encountered error", zap.Error(err))
	}

	txs := []*indexer.Transfer{}
	for _, r := range results {
		txs = append(txs, r...)
	}

	return txs
}

func (e *Engine) fetch(ctx context.Context, src Source, w Window, mode string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	metrics.SourceFetchesTotal.WithLabelValues(src.Name(), mode).Inc()

	start := time.Now()
	page, err := src.FetchWindow(ctx, w)
	metrics.SourceFetchLatency.WithLabelValues(src.Name(), mode).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchErrors.WithLabelValues(src.Name(), mode).Inc()
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}

	if page == nil {
		page = &Page{}
	}

	return page, nil
}

// randomDelay waits a duration drawn uniformly from [min, max]
func randomDelay(min, max time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		d := min
		if max > min {
			d += time.Duration(rand.Int63n(int64(max-min) + 1))
		}

		if d <= 0 {
			return ctx.Err()
		}

		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
