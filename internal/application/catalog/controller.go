package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// ErrClosed is returned by a controller after Close
var ErrClosed = errors.New("catalog controller closed")

// maxPendingSnapshots bounds the observer queue of one controller
const maxPendingSnapshots = 64

// Observer receives every snapshot a controller publishes, in order
type Observer func(entities.CatalogSnapshot)

// SettledFetch describes a fetch whose result was applied
type SettledFetch struct {
	View          string
	Query         string
	Ticket        FetchTicket
	Search        string
	Outcome       entities.CatalogPhase
	ResultCount   int
	TotalProducts int
	Latency       time.Duration
	Err           error
}

// Option configures a Controller
type Option func(*Controller)

// WithHistory sets where URL changes are written
func WithHistory(h providers.HistoryWriter) Option {
	return func(c *Controller) { c.history = h }
}

// WithFetchTimeout bounds each product API call
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithMetrics records fetch telemetry
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithSettleHook is called after every applied fetch, outside the controller lock
func WithSettleHook(fn func(SettledFetch)) Option {
	return func(c *Controller) { c.onSettled = fn }
}

// Controller drives one catalog view: it turns commands into query states,
// writes them to the URL and fetches whenever the URL-derived ticket changes.
//
// Phases move idle -> loading -> ready|failed, and back to loading whenever
// the ticket changes. Client-only changes (the price slider) recompute the
// snapshot without a fetch. A failed fetch keeps the last products visible.
type Controller struct {
	view       entities.ViewConfig
	serializer *Serializer
	fetcher    *Fetcher
	history    providers.HistoryWriter
	timeout    time.Duration
	metrics    *observability.Metrics
	onSettled  func(SettledFetch)
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	phase      entities.CatalogPhase
	state      entities.QueryState
	rawQuery   string
	ticket     FetchTicket
	generation uint64
	result     *entities.CatalogResult
	fetchErr   *entities.FetchError
	updatedAt  time.Time
	changed    chan struct{}
	closed     bool

	observerMu sync.Mutex
	observers  map[int]Observer
	nextID     int
	pendingMu  sync.Mutex
	pending    []entities.CatalogSnapshot
	wake       chan struct{}
	done       chan struct{}
}

// NewController creates an idle controller for a view
func NewController(view entities.ViewConfig, provider providers.CatalogProvider, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		view:       view,
		serializer: NewSerializer(view),
		history:    NewMemoryHistory(""),
		logger:     log.With().Str("component", "catalog").Str("view", view.Name).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		phase:      entities.CatalogPhaseIdle,
		state:      view.EmptyState(),
		changed:    make(chan struct{}),
		observers:  make(map[int]Observer),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fetcher = NewFetcher(provider, view.Name, c.timeout, c.metrics)

	go c.deliver()
	return c
}

// View returns the view the controller serves
func (c *Controller) View() entities.ViewConfig { return c.view }

// Mount resolves the initial state from the URL and issues the first fetch
func (c *Controller) Mount(ctx context.Context, rawQuery string) (entities.CatalogSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.phase != entities.CatalogPhaseIdle {
		return c.snapshotLocked(), apperrors.NewValidationError("catalog controller already mounted")
	}

	state := c.serializer.Parse(rawQuery)
	canonical := c.serializer.Serialize(state)
	c.history.Replace(canonical)

	c.syncLocked(ctx, state, canonical, false)
	return c.snapshotLocked(), nil
}

// Dispatch applies a command. Filter, search, sort and price changes replace
// the current history entry; page navigation pushes a new one.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (entities.CatalogSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.phase == entities.CatalogPhaseIdle {
		return c.snapshotLocked(), apperrors.NewValidationError("catalog controller is not mounted")
	}

	next, mode, err := apply(c.state, cmd, c.paginationLocked(), c.view)
	if err != nil {
		return c.snapshotLocked(), err
	}

	raw := c.serializer.Serialize(next)
	if raw != c.rawQuery {
		if mode == historyPush {
			c.history.Push(raw)
		} else {
			c.history.Replace(raw)
		}
	}

	// The URL is the only input to the fetch trigger.
	effective := c.serializer.Parse(raw)
	c.syncLocked(ctx, effective, raw, cmd.Type == CommandRetry)
	return c.snapshotLocked(), nil
}

// Navigate applies a URL reached by back/forward navigation. Nothing is
// written to the history.
func (c *Controller) Navigate(ctx context.Context, rawQuery string) (entities.CatalogSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}

	state := c.serializer.Parse(rawQuery)
	c.syncLocked(ctx, state, c.serializer.Serialize(state), false)
	return c.snapshotLocked(), nil
}

// Snapshot returns the current state
func (c *Controller) Snapshot() entities.CatalogSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Await blocks until no fetch is outstanding
func (c *Controller) Await(ctx context.Context) (entities.CatalogSnapshot, error) {
	for {
		c.mu.Lock()
		if c.closed {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, ErrClosed
		}
		if c.phase == entities.CatalogPhaseReady || c.phase == entities.CatalogPhaseFailed {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Subscribe registers an observer. The returned function removes it.
// Observers run on a delivery goroutine and must not block for long.
func (c *Controller) Subscribe(observer Observer) func() {
	c.observerMu.Lock()
	defer c.observerMu.Unlock()

	id := c.nextID
	c.nextID++
	c.observers[id] = observer

	return func() {
		c.observerMu.Lock()
		defer c.observerMu.Unlock()
		delete(c.observers, id)
	}
}

// Close aborts any outstanding fetch and stops notifications
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.fetcher.Abort()
	c.broadcastLocked()
	c.mu.Unlock()

	close(c.done)
}

// syncLocked installs the effective state and fetches when its ticket differs
// from the last one issued. Callers hold c.mu.
func (c *Controller) syncLocked(ctx context.Context, state entities.QueryState, canonical string, force bool) {
	req := NewProductListRequest(state, c.view)
	ticket := req.Ticket()

	c.state = state
	c.rawQuery = canonical
	c.updatedAt = time.Now()

	if ticket == c.ticket && c.phase != entities.CatalogPhaseIdle && !force {
		c.logger.Debug().Str("ticket", string(ticket)).Msg("Ticket unchanged, recomputing locally")
		c.broadcastLocked()
		return
	}

	c.ticket = ticket
	c.generation++
	c.phase = entities.CatalogPhaseLoading
	c.fetchErr = nil
	c.broadcastLocked()

	// Keep the caller's trace but tie the call's lifetime to the controller.
	fetchCtx := trace.ContextWithSpanContext(c.ctx, trace.SpanContextFromContext(ctx))
	pending := c.fetcher.Issue(fetchCtx, ticket, req)
	go c.settle(fetchCtx, pending, c.generation, ticket, req, canonical)
}

func (c *Controller) settle(ctx context.Context, pending *Pending, generation uint64, ticket FetchTicket, req ProductListRequest, query string) {
	start := time.Now()
	result, err := pending.Wait(ctx)
	latency := time.Since(start)

	c.mu.Lock()
	if c.closed || generation != c.generation || errors.Is(err, ErrSuperseded) {
		c.mu.Unlock()
		c.logger.Debug().
			Str("ticket", string(ticket)).
			Uint64("generation", generation).
			Msg("Discarding stale catalog result")
		return
	}

	settled := SettledFetch{
		View:    c.view.Name,
		Query:   query,
		Ticket:  ticket,
		Search:  req.Search,
		Latency: latency,
		Err:     err,
	}

	if err != nil {
		c.phase = entities.CatalogPhaseFailed
		c.fetchErr = ToFetchError(err)
		c.logger.Warn().
			Err(err).
			Str("ticket", string(ticket)).
			Dur("latency", latency).
			Msg("Catalog fetch failed")
	} else {
		c.phase = entities.CatalogPhaseReady
		c.result = result
		c.fetchErr = nil
		settled.ResultCount = len(result.Products)
		settled.TotalProducts = result.TotalProducts
		c.logger.Debug().
			Str("ticket", string(ticket)).
			Int("products", len(result.Products)).
			Dur("latency", latency).
			Msg("Catalog fetch settled")
	}
	settled.Outcome = c.phase
	c.updatedAt = time.Now()
	c.broadcastLocked()
	c.mu.Unlock()

	if c.onSettled != nil {
		c.onSettled(settled)
	}
}

// broadcastLocked wakes Await callers and queues a snapshot for observers.
// A full queue evicts its oldest entry so the newest state always arrives.
func (c *Controller) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})

	if c.closed {
		return
	}

	c.pendingMu.Lock()
	if len(c.pending) >= maxPendingSnapshots {
		c.pending = slices.Delete(c.pending, 0, 1)
		c.logger.Warn().Msg("Observer queue full, dropping oldest catalog snapshot")
	}
	c.pending = append(c.pending, c.snapshotLocked())
	c.pendingMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) deliver() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for {
			c.pendingMu.Lock()
			batch := c.pending
			c.pending = nil
			c.pendingMu.Unlock()
			if len(batch) == 0 {
				break
			}

			c.observerMu.Lock()
			observers := make([]Observer, 0, len(c.observers))
			for _, o := range c.observers {
				observers = append(observers, o)
			}
			c.observerMu.Unlock()

			for _, snap := range batch {
				for _, o := range observers {
					o(snap)
				}
			}
		}
	}
}

func (c *Controller) paginationLocked() Pagination {
	p := PaginationFromResult(c.result, c.view.PageSize)
	p.CurrentPage = c.state.Page()
	return p
}

func (c *Controller) snapshotLocked() entities.CatalogSnapshot {
	snap := entities.CatalogSnapshot{
		View:        c.view.Name,
		Phase:       c.phase,
		Loading:     c.phase == entities.CatalogPhaseLoading,
		Query:       c.state,
		URL:         c.rawQuery,
		Ticket:      string(c.ticket),
		Generation:  c.generation,
		Products:    []entities.Product{},
		CurrentPage: c.state.Page(),
		Error:       c.fetchErr,
		UpdatedAt:   c.updatedAt,
	}

	if c.result == nil {
		return snap
	}

	products := Refine(c.result.Products, PredicateFor(c.state, c.view))
	if !c.view.ServerSort {
		products = SortProducts(products, c.state.Sort())
	}
	pages := PaginationFromResult(c.result, c.view.PageSize)

	snap.Products = products
	snap.Fetched = len(c.result.Products)
	snap.CurrentPage = pages.CurrentPage
	snap.TotalPages = pages.TotalPages
	snap.TotalProducts = c.result.TotalProducts
	snap.HasNext = pages.HasNext()
	snap.HasPrev = pages.HasPrev()
	return snap
}
