package storage

import (
	"context"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

// UserView binds a Storage to one user so it satisfies the radar
// collaborator interfaces (ListStore, CandidatePool, SessionDirectory,
// Geolocation) for server-side match computation.
type UserView struct {
	Store        Storage
	UserID       string
	RadiusMeters float64
}

func (v UserView) WantList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	return v.Store.GetList(ctx, userID, models.WantList)
}

func (v UserView) HaveList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	return v.Store.GetList(ctx, userID, models.HaveList)
}

func (v UserView) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	return v.Store.RemoveEntries(ctx, userID, cardIDs, kind)
}

func (v UserView) NearbyUsers(ctx context.Context) ([]models.Profile, error) {
	return v.Store.FindNearbyUsers(ctx, v.UserID, v.RadiusMeters)
}

func (v UserView) Sessions(ctx context.Context) ([]models.SessionSummary, error) {
	sessions, err := v.Store.GetSessionsForUser(ctx, v.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]models.SessionSummary, len(sessions))
	for i, s := range sessions {
		out[i] = s.Summary(v.UserID)
	}
	return out, nil
}

func (v UserView) CurrentLocation(ctx context.Context) (*geo.Coordinate, error) {
	return v.Store.GetLocation(ctx, v.UserID)
}
