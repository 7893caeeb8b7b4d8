package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

func setupMockDB(t *testing.T) (*QueryAnalyticsAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewQueryAnalyticsAdapter(postgres.NewClientFromDB(db), nil), mock
}

func TestQueryAnalyticsAdapter_LogEvent(t *testing.T) {
	adapter, mock := setupMockDB(t)

	event := &entities.QueryEvent{
		SessionID:     "s-1",
		View:          "silver-jewellery",
		Query:         "category=Rings",
		Ticket:        "abc123",
		Outcome:       entities.QueryOutcomeOK,
		ResultCount:   0,
		TotalProducts: 0,
		LatencyMs:     42,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "catalog_query_events"`)).
		WithArgs(
			sqlmock.AnyArg(), // created_at
			sqlmock.AnyArg(), // id
			42,
			entities.QueryOutcomeOK,
			"category=Rings",
			0,
			"",
			"s-1",
			"abc123",
			0,
			"silver-jewellery",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, adapter.LogEvent(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryAnalyticsAdapter_LogEventFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "catalog_query_events"`)).
		WillReturnError(assert.AnError)

	err := adapter.LogEvent(context.Background(), &entities.QueryEvent{View: "shop", Outcome: entities.QueryOutcomeOK})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInternal))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestQueryAnalyticsAdapter_GetZeroResultQueries(t *testing.T) {
	adapter, mock := setupMockDB(t)
	seen := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT "view", "query", COUNT\(\*\) AS "occurrences", MAX\("created_at"\) AS "last_seen" FROM "catalog_query_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"view", "query", "occurrences", "last_seen"}).
			AddRow("shop", "search=opal", 7, seen).
			AddRow("bags", "color=Teal", 2, seen.Add(-time.Hour)))

	got, err := adapter.GetZeroResultQueries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "search=opal", got[0].Query)
	assert.Equal(t, 7, got[0].Occurrences)
	assert.Equal(t, seen, got[0].LastSeen)
	assert.Equal(t, "bags", got[1].View)
	assert.NoError(t, mock.ExpectationsWereMet())
}
