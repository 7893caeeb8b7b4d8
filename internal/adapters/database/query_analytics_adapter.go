package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/repositories"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

const queryEventsTable = "catalog_query_events"

const createQueryEventsTable = `
CREATE TABLE IF NOT EXISTS catalog_query_events (
	id             UUID PRIMARY KEY,
	session_id     TEXT NOT NULL DEFAULT '',
	view           TEXT NOT NULL,
	query          TEXT NOT NULL,
	ticket         TEXT NOT NULL,
	search         TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	result_count   INTEGER NOT NULL,
	total_products INTEGER NOT NULL,
	latency_ms     INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalog_query_events_zero
	ON catalog_query_events (view, query) WHERE result_count = 0 AND outcome = 'ok';
`

// QueryAnalyticsAdapter implements QueryAnalyticsRepository on PostgreSQL
type QueryAnalyticsAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewQueryAnalyticsAdapter creates a new query analytics adapter
func NewQueryAnalyticsAdapter(client *postgres.Client, metrics *observability.Metrics) *QueryAnalyticsAdapter {
	return &QueryAnalyticsAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

var _ repositories.QueryAnalyticsRepository = (*QueryAnalyticsAdapter)(nil)

// EnsureSchema creates the events table when it does not exist
func (a *QueryAnalyticsAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, createQueryEventsTable); err != nil {
		return apperrors.NewInternalError("failed to create query analytics schema", err)
	}
	return nil
}

// LogEvent stores one settled catalog fetch
func (a *QueryAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.QueryEvent) error {
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, "query_events.insert", time.Since(start))
	}()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"id":             event.ID,
		"session_id":     event.SessionID,
		"view":           event.View,
		"query":          event.Query,
		"ticket":         event.Ticket,
		"search":         event.Search,
		"outcome":        event.Outcome,
		"result_count":   event.ResultCount,
		"total_products": event.TotalProducts,
		"latency_ms":     event.LatencyMs,
		"created_at":     event.CreatedAt,
	}

	query, args, err := a.db.Insert(queryEventsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log query event", err)
	}
	return nil
}

// GetZeroResultQueries returns successful queries that matched nothing,
// most frequent first
func (a *QueryAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.ZeroResultQuery, error) {
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, "query_events.zero_results", time.Since(start))
	}()

	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From(queryEventsTable).
		Select(
			goqu.C("view"),
			goqu.C("query"),
			goqu.COUNT("*").As("occurrences"),
			goqu.MAX("created_at").As("last_seen"),
		).
		Where(
			goqu.C("outcome").Eq(entities.QueryOutcomeOK),
			goqu.C("result_count").Eq(0),
		).
		GroupBy(goqu.C("view"), goqu.C("query")).
		Order(goqu.I("occurrences").Desc(), goqu.I("last_seen").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	out := make([]*entities.ZeroResultQuery, 0)
	for rows.Next() {
		q := &entities.ZeroResultQuery{}
		var lastSeen sql.NullTime
		if err := rows.Scan(&q.View, &q.Query, &q.Occurrences, &lastSeen); err != nil {
			return nil, apperrors.NewInternalError("failed to scan zero result query", err)
		}
		q.LastSeen = lastSeen.Time
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate zero result queries", err)
	}
	return out, nil
}
