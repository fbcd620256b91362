// Package radar computes trade matches between the current user and nearby
// collectors, keeps a published snapshot of them fresh while scanning, and
// places them on the radar display.
package radar

import (
	"context"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

// Geolocation supplies the current user's position. A nil coordinate with a
// nil error means the position is unknown.
type Geolocation interface {
	CurrentLocation(ctx context.Context) (*geo.Coordinate, error)
}

// ListStore is the authoritative source of want and have lists.
type ListStore interface {
	WantList(ctx context.Context, userID string) ([]models.TradeListEntry, error)
	HaveList(ctx context.Context, userID string) ([]models.TradeListEntry, error)
	RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error
}

// CandidatePool decides which users are worth matching against.
type CandidatePool interface {
	NearbyUsers(ctx context.Context) ([]models.Profile, error)
}

// SessionDirectory lists the current user's negotiations, any status.
type SessionDirectory interface {
	Sessions(ctx context.Context) ([]models.SessionSummary, error)
}

// SessionCanceller cancels an active negotiation.
type SessionCanceller interface {
	Cancel(ctx context.Context, sessionID, reason string) error
}
