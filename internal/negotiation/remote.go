// Package negotiation drives one-to-one trade negotiations: the session state
// machine, the polling message transport and the registry of open sessions.
package negotiation

import (
	"context"

	"traderadar/backend/internal/models"
)

// OpenRequest asks the server of record for the session behind a match.
type OpenRequest struct {
	MatchID       string           `json:"match_id"`
	CounterpartID string           `json:"counterpart_id"`
	MatchType     models.MatchType `json:"match_type"`
	CardIDs       []string         `json:"card_ids"`
}

// Remote is the server of record for sessions and messages.
type Remote interface {
	// OpenSession returns the active session for the match, creating one when
	// the match carries cards, or the latest terminal session for History.
	OpenSession(ctx context.Context, req OpenRequest) (models.NegotiationSession, error)
	// Poll returns the full message log and the authoritative status.
	Poll(ctx context.Context, sessionID string) (models.Snapshot, error)
	Send(ctx context.Context, sessionID, content string) error
	Complete(ctx context.Context, sessionID string) error
	Cancel(ctx context.Context, sessionID, reason string) error
}

// ListRemover removes cards from one of a user's lists.
type ListRemover interface {
	RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error
}
