package entities

import (
	"time"
)

// QueryOutcomeOK marks a fetch that settled with a result. Failed fetches
// carry their FetchErrorKind as outcome.
const QueryOutcomeOK = "ok"

// QueryEvent records one settled catalog fetch for analytics.
type QueryEvent struct {
	ID            string    `json:"id" db:"id"`
	SessionID     string    `json:"session_id,omitempty" db:"session_id"`
	View          string    `json:"view" db:"view"`
	Query         string    `json:"query" db:"query"`
	Ticket        string    `json:"ticket" db:"ticket"`
	Search        string    `json:"search,omitempty" db:"search"`
	Outcome       string    `json:"outcome" db:"outcome"`
	ResultCount   int       `json:"result_count" db:"result_count"`
	TotalProducts int       `json:"total_products" db:"total_products"`
	LatencyMs     int       `json:"latency_ms" db:"latency_ms"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ZeroResultQuery aggregates catalog queries that matched no products.
type ZeroResultQuery struct {
	View        string    `json:"view" db:"view"`
	Query       string    `json:"query" db:"query"`
	Occurrences int       `json:"occurrences" db:"occurrences"`
	LastSeen    time.Time `json:"last_seen" db:"last_seen"`
}
