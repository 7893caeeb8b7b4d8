package entities

import (
	"time"
)

// CatalogPhase is the lifecycle state of a catalog controller
type CatalogPhase string

const (
	CatalogPhaseIdle    CatalogPhase = "idle"
	CatalogPhaseLoading CatalogPhase = "loading"
	CatalogPhaseReady   CatalogPhase = "ready"
	CatalogPhaseFailed  CatalogPhase = "failed"
)

// FetchErrorKind classifies a failed catalog fetch
type FetchErrorKind string

const (
	FetchErrorNetwork FetchErrorKind = "network"
	FetchErrorServer  FetchErrorKind = "server"
)

// FetchError is the inline message shown next to the product grid
type FetchError struct {
	Kind       FetchErrorKind `json:"kind"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode,omitempty"`
}

// CatalogSnapshot is a read-only view of a controller at one point in time
type CatalogSnapshot struct {
	View       string       `json:"view"`
	Phase      CatalogPhase `json:"phase"`
	Loading    bool         `json:"loading"`
	Query      QueryState   `json:"query"`
	URL        string       `json:"url"`
	Ticket     string       `json:"ticket,omitempty"`
	Generation uint64       `json:"generation"`

	// Products is the fetched page after client refinement and ordering
	Products []Product `json:"products"`
	// Fetched is the number of products the server returned for the page
	Fetched int `json:"fetched"`

	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalProducts int  `json:"totalProducts"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`

	Error     *FetchError `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Settled reports whether no fetch is outstanding
func (s *CatalogSnapshot) Settled() bool {
	return s.Phase == CatalogPhaseReady || s.Phase == CatalogPhaseFailed
}
