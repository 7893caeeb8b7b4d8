package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// DefaultFetchTimeout bounds every product API call
const DefaultFetchTimeout = 15 * time.Second

// ErrSuperseded is returned to a caller whose request was overtaken by a
// later one. Its result must not be applied.
var ErrSuperseded = errors.New("catalog fetch superseded by a newer request")

// Fetcher issues product listing requests for one consumer.
//
// Identical tickets in flight share one network call. Only the most recent
// Request receives a result; earlier callers get ErrSuperseded. Requesting a
// new ticket aborts the network call of any other ticket.
type Fetcher struct {
	provider providers.CatalogProvider
	view     string
	timeout  time.Duration
	metrics  *observability.Metrics

	group singleflight.Group

	mu       sync.Mutex
	seq      uint64
	epoch    uint64
	current  FetchTicket
	inflight map[string]context.CancelFunc
}

// NewFetcher creates a fetcher. A non-positive timeout selects DefaultFetchTimeout.
func NewFetcher(provider providers.CatalogProvider, view string, timeout time.Duration, metrics *observability.Metrics) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		provider: provider,
		view:     view,
		timeout:  timeout,
		metrics:  metrics,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Pending is an issued fetch awaiting its result
type Pending struct {
	fetcher *Fetcher
	seq     uint64
	ch      <-chan singleflight.Result
}

// Request fetches the listing for a ticket. It blocks until the call settles,
// the request is superseded, or ctx is done.
func (f *Fetcher) Request(ctx context.Context, ticket FetchTicket, req ProductListRequest) (*entities.CatalogResult, error) {
	return f.Issue(ctx, ticket, req).Wait(ctx)
}

// Issue registers a request without waiting for it. Requests are ordered by
// the time Issue is called, so callers that need ordering call it
// synchronously and Wait elsewhere.
func (f *Fetcher) Issue(ctx context.Context, ticket FetchTicket, req ProductListRequest) *Pending {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	if ticket != f.current {
		f.abortLocked()
		f.epoch++
		f.current = ticket
	}
	epoch := f.epoch
	key := fmt.Sprintf("%s#%d", ticket, epoch)

	// DoChan never runs fn on the calling goroutine, so holding mu is safe.
	ch := f.group.DoChan(key, func() (interface{}, error) {
		return f.call(ctx, key, epoch, ticket, req)
	})
	return &Pending{fetcher: f, seq: f.seq, ch: ch}
}

// Wait blocks until the issued call settles. It returns ErrSuperseded when a
// later request was issued in the meantime.
func (p *Pending) Wait(ctx context.Context) (*entities.CatalogResult, error) {
	f := p.fetcher
	select {
	case res := <-p.ch:
		if f.superseded(p.seq) {
			observability.RecordFetchSuperseded(ctx, f.metrics, f.view)
			return nil, ErrSuperseded
		}
		if res.Shared {
			observability.RecordFetchShared(ctx, f.metrics, f.view)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.CatalogResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Fetcher) call(parent context.Context, key string, epoch uint64, ticket FetchTicket, req ProductListRequest) (*entities.CatalogResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
	defer cancel()

	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		return nil, ErrSuperseded
	}
	f.inflight[key] = cancel
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.inflight, key)
		f.mu.Unlock()
	}()

	ctx, span := observability.StartSpan(ctx, "catalog.fetch")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("catalog.view", f.view),
		attribute.String("catalog.ticket", string(ticket)),
		attribute.Int("catalog.page", req.Page),
	)

	start := time.Now()
	result, err := f.provider.ListProducts(ctx, req.Values())
	elapsed := time.Since(start)

	if err != nil {
		err = classifyFetchError(ctx, err, f.timeout)
		observability.RecordError(span, err)
		observability.RecordFetch(ctx, f.metrics, f.view, string(apperrors.TypeOf(err)), elapsed)
		log.Debug().
			Err(err).
			Str("view", f.view).
			Str("ticket", string(ticket)).
			Dur("latency", elapsed).
			Msg("Catalog fetch failed")
		return nil, err
	}
	if result == nil {
		return nil, apperrors.NewServerError(0, "product API returned an empty listing")
	}

	observability.RecordFetch(ctx, f.metrics, f.view, "ok", elapsed)
	return result, nil
}

// Abort cancels every in-flight call and supersedes all waiting callers
func (f *Fetcher) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortLocked()
	f.seq++
	f.epoch++
	f.current = ""
}

// abortLocked cancels every in-flight call. Callers hold f.mu.
func (f *Fetcher) abortLocked() {
	for key, cancel := range f.inflight {
		cancel()
		delete(f.inflight, key)
	}
}

func (f *Fetcher) superseded(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return seq != f.seq
}

// classifyFetchError maps a provider failure onto NETWORK or SERVER
func classifyFetchError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewNetworkError(fmt.Sprintf("product API did not answer within %s", timeout), err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewNetworkError("catalog request aborted", err)
	}
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNetwork, apperrors.ErrorTypeServer:
		return err
	}
	return apperrors.NewNetworkError("catalog request failed", err)
}

// ToFetchError converts a fetch failure into the inline message shown to shoppers
func ToFetchError(err error) *entities.FetchError {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeServer {
		return &entities.FetchError{
			Kind:       entities.FetchErrorServer,
			Message:    appErr.Message,
			StatusCode: appErr.StatusCode,
		}
	}
	msg := "Could not reach the store. Check your connection and try again."
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}
	return &entities.FetchError{Kind: entities.FetchErrorNetwork, Message: msg}
}
