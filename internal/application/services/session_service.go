package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// SessionSnapshot is a catalog snapshot tagged with the session that produced it
type SessionSnapshot struct {
	SessionID string `json:"sessionId"`
	entities.CatalogSnapshot
}

// SessionConfig tunes the session service
type SessionConfig struct {
	FetchTimeout time.Duration
	IdleTTL      time.Duration
	MaxSessions  int
}

type session struct {
	id         string
	view       string
	controller *catalog.Controller
	history    *catalog.MemoryHistory
	stop       func()

	// navMu serialises back/forward so history moves and controller
	// navigation happen as one step
	navMu    sync.Mutex
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionService owns one catalog controller per browsing session
type SessionService struct {
	views     *catalog.ViewRegistry
	provider  providers.CatalogProvider
	eventBus  providers.EventBus
	analytics *QueryAnalyticsService
	metrics   *observability.Metrics
	cfg       SessionConfig
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	reserved int // slots held by creates still mounting
}

// NewSessionService creates a session service. eventBus, analytics and
// metrics may be nil.
func NewSessionService(
	views *catalog.ViewRegistry,
	provider providers.CatalogProvider,
	eventBus providers.EventBus,
	analytics *QueryAnalyticsService,
	metrics *observability.Metrics,
	cfg SessionConfig,
) *SessionService {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = catalog.DefaultFetchTimeout
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &SessionService{
		views:     views,
		provider:  provider,
		eventBus:  eventBus,
		analytics: analytics,
		metrics:   metrics,
		cfg:       cfg,
		logger:    log.With().Str("component", "session_service").Logger(),
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Views returns the view registry
func (s *SessionService) Views() *catalog.ViewRegistry {
	return s.views
}

// Resolve mounts an ephemeral controller, waits for its first fetch and
// returns the settled snapshot. Nothing is kept after the call.
func (s *SessionService) Resolve(ctx context.Context, viewName, rawQuery string) (entities.CatalogSnapshot, error) {
	view, err := s.views.Get(viewName)
	if err != nil {
		return entities.CatalogSnapshot{}, err
	}

	controller := catalog.NewController(view, s.provider, s.controllerOptions("", catalog.NewMemoryHistory(""))...)
	defer controller.Close()

	if _, err := controller.Mount(ctx, rawQuery); err != nil {
		return entities.CatalogSnapshot{}, err
	}
	snap, err := controller.Await(ctx)
	if err != nil {
		return snap, apperrors.NewNetworkError("catalog view did not settle", err)
	}
	return snap, nil
}

// Create starts a session for a view mounted at rawQuery
func (s *SessionService) Create(ctx context.Context, viewName, rawQuery string) (SessionSnapshot, error) {
	view, err := s.views.Get(viewName)
	if err != nil {
		return SessionSnapshot{}, err
	}

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions)+s.reserved >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return SessionSnapshot{}, apperrors.NewUnavailableError("too many open catalog sessions")
	}
	s.reserved++
	s.mu.Unlock()

	id := uuid.NewString()
	history := catalog.NewMemoryHistory("")
	controller := catalog.NewController(view, s.provider, s.controllerOptions(id, history)...)

	sess := &session{
		id:         id,
		view:       view.Name,
		controller: controller,
		history:    history,
		lastSeen:   s.now(),
	}
	sess.stop = controller.Subscribe(func(snap entities.CatalogSnapshot) {
		s.publish(id, view.Name, entities.CatalogEventStateChanged, &snap)
	})

	snap, err := controller.Mount(ctx, rawQuery)

	s.mu.Lock()
	s.reserved--
	if err == nil {
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	if err != nil {
		sess.stop()
		controller.Close()
		return SessionSnapshot{}, err
	}

	observability.RecordSessionDelta(ctx, s.metrics, 1)
	s.publish(id, view.Name, entities.CatalogEventSessionCreated, &snap)
	s.logger.Info().Str("session_id", id).Str("view", view.Name).Str("query", snap.URL).Msg("Catalog session created")

	return SessionSnapshot{SessionID: id, CatalogSnapshot: snap}, nil
}

// Get returns a session's current snapshot. With wait set it blocks until
// no fetch is outstanding or ctx ends.
func (s *SessionService) Get(ctx context.Context, id string, wait bool) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	if !wait {
		return SessionSnapshot{SessionID: id, CatalogSnapshot: sess.controller.Snapshot()}, nil
	}

	snap, err := sess.controller.Await(ctx)
	if errors.Is(err, catalog.ErrClosed) {
		return SessionSnapshot{}, sessionNotFound(id)
	}
	if err != nil && ctx.Err() == nil {
		return SessionSnapshot{}, err
	}
	// A wait cut short by ctx still returns the latest snapshot.
	return SessionSnapshot{SessionID: id, CatalogSnapshot: snap}, nil
}

// Dispatch applies a command to a session
func (s *SessionService) Dispatch(ctx context.Context, id string, cmd catalog.Command) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	snap, err := sess.controller.Dispatch(ctx, cmd)
	if errors.Is(err, catalog.ErrClosed) {
		return SessionSnapshot{}, sessionNotFound(id)
	}
	if err != nil {
		return SessionSnapshot{}, err
	}
	return SessionSnapshot{SessionID: id, CatalogSnapshot: snap}, nil
}

// Back moves the session one history entry back
func (s *SessionService) Back(ctx context.Context, id string) (SessionSnapshot, error) {
	return s.navigate(ctx, id, (*catalog.MemoryHistory).Back)
}

// Forward moves the session one history entry forward
func (s *SessionService) Forward(ctx context.Context, id string) (SessionSnapshot, error) {
	return s.navigate(ctx, id, (*catalog.MemoryHistory).Forward)
}

func (s *SessionService) navigate(ctx context.Context, id string, move func(*catalog.MemoryHistory) (string, bool)) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.navMu.Lock()
	defer sess.navMu.Unlock()

	raw, ok := move(sess.history)
	if !ok {
		return SessionSnapshot{SessionID: id, CatalogSnapshot: sess.controller.Snapshot()}, nil
	}

	snap, err := sess.controller.Navigate(ctx, raw)
	if errors.Is(err, catalog.ErrClosed) {
		return SessionSnapshot{}, sessionNotFound(id)
	}
	if err != nil {
		return SessionSnapshot{}, err
	}
	return SessionSnapshot{SessionID: id, CatalogSnapshot: snap}, nil
}

// Close ends a session and aborts its outstanding fetch
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return sessionNotFound(id)
	}
	s.shutdown(ctx, sess, "closed")
	return nil
}

// Subscribe streams a session's events until ctx is done. Without an event
// bus the stream is fed directly from the controller.
func (s *SessionService) Subscribe(ctx context.Context, id string) (<-chan *entities.CatalogEvent, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		return s.eventBus.Subscribe(ctx, providers.GetSessionChannel(id))
	}

	events := make(chan *entities.CatalogEvent, 16)
	var once sync.Once
	var mu sync.Mutex
	done := false
	unsubscribe := sess.controller.Subscribe(func(snap entities.CatalogSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		event := entities.NewCatalogEvent(id, sess.view, entities.CatalogEventStateChanged, &snap)
		select {
		case events <- event:
			return
		default:
		}
		// Full: evict the oldest so the newest state is never the one lost
		select {
		case <-events:
		default:
		}
		select {
		case events <- event:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			done = true
			close(events)
			mu.Unlock()
		})
	}()
	return events, nil
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor closes idle sessions every interval until ctx is done
func (s *SessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(ctx); n > 0 {
					s.logger.Info().Int("expired", n).Int("open", s.Count()).Msg("Expired idle catalog sessions")
				}
			}
		}
	}()
}

// sweep closes sessions idle for longer than the TTL and reports how many
func (s *SessionService) sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.shutdown(ctx, sess, "expired")
	}
	return len(expired)
}

// Shutdown closes every session
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range all {
		s.shutdown(ctx, sess, "shutdown")
	}
}

func (s *SessionService) shutdown(ctx context.Context, sess *session, reason string) {
	sess.stop()
	snap := sess.controller.Snapshot()
	sess.controller.Close()

	observability.RecordSessionDelta(ctx, s.metrics, -1)
	s.publish(sess.id, sess.view, entities.CatalogEventSessionClosed, &snap)
	s.logger.Info().Str("session_id", sess.id).Str("reason", reason).Msg("Catalog session closed")
}

func (s *SessionService) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessionNotFound(id)
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *SessionService) controllerOptions(sessionID string, history providers.HistoryWriter) []catalog.Option {
	opts := []catalog.Option{
		catalog.WithHistory(history),
		catalog.WithFetchTimeout(s.cfg.FetchTimeout),
		catalog.WithMetrics(s.metrics),
	}
	if s.analytics.Enabled() {
		opts = append(opts, catalog.WithSettleHook(func(settled catalog.SettledFetch) {
			s.analytics.Track(sessionID, settled)
		}))
	}
	return opts
}

func (s *SessionService) publish(sessionID, view string, eventType entities.CatalogEventType, snap *entities.CatalogSnapshot) {
	if s.eventBus == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event := entities.NewCatalogEvent(sessionID, view, eventType, snap)
	if err := s.eventBus.Publish(ctx, providers.GetSessionChannel(sessionID), event); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to publish catalog event")
	}

	// The global channel carries only lifecycle events
	if eventType != entities.CatalogEventStateChanged {
		summary := entities.NewCatalogEvent(sessionID, view, eventType, nil)
		if err := s.eventBus.Publish(ctx, providers.EventChannelCatalogUpdates, summary); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish catalog lifecycle event")
		}
	}
}

func sessionNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("catalog session %q not found", id))
}
