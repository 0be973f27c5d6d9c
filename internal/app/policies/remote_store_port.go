package policies

import (
	"context"

	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/daterange"
)

// RemoteStore holds the authoritative per-date prices of entities.
type RemoteStore interface {
	// Query returns the rows of entityID. A zero filter returns every row.
	Query(ctx context.Context, entityID string, filter daterange.DateRange) ([]calendar.SyncRecord, error)
	DeleteAll(ctx context.Context, entityID string) error
	InsertMany(ctx context.Context, recs []calendar.SyncRecord) error
}

// Pinger is implemented by adapters that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
