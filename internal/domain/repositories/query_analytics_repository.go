package repositories

import (
	"context"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// QueryAnalyticsRepository stores settled catalog fetches
type QueryAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.QueryEvent) error
	GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.ZeroResultQuery, error)
}
