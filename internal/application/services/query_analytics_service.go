package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/repositories"
)

// QueryAnalyticsService records settled catalog fetches. A nil repository
// turns tracking into a no-op.
type QueryAnalyticsService struct {
	repo repositories.QueryAnalyticsRepository
}

// NewQueryAnalyticsService creates a new analytics service
func NewQueryAnalyticsService(repo repositories.QueryAnalyticsRepository) *QueryAnalyticsService {
	return &QueryAnalyticsService{repo: repo}
}

// Enabled reports whether events are persisted
func (s *QueryAnalyticsService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Track stores a settled fetch in the background
func (s *QueryAnalyticsService) Track(sessionID string, settled catalog.SettledFetch) {
	if !s.Enabled() {
		return
	}

	event := &entities.QueryEvent{
		SessionID:     sessionID,
		View:          settled.View,
		Query:         settled.Query,
		Ticket:        string(settled.Ticket),
		Search:        settled.Search,
		Outcome:       entities.QueryOutcomeOK,
		ResultCount:   settled.ResultCount,
		TotalProducts: settled.TotalProducts,
		LatencyMs:     int(settled.Latency.Milliseconds()),
		CreatedAt:     time.Now().UTC(),
	}
	if fetchErr := catalog.ToFetchError(settled.Err); fetchErr != nil {
		event.Outcome = string(fetchErr.Kind)
	}

	go func() {
		// The request that caused the fetch may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(ctx, event); err != nil {
			log.Warn().Err(err).Str("view", event.View).Msg("Failed to log catalog query event")
		}
	}()
}

// GetZeroResultQueries lists successful queries that matched no products
func (s *QueryAnalyticsService) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.ZeroResultQuery, error) {
	if !s.Enabled() {
		return []*entities.ZeroResultQuery{}, nil
	}
	return s.repo.GetZeroResultQueries(ctx, limit)
}
