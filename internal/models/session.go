package models

import (
	"time"

	"github.com/lib/pq"
)

// NegotiationStatus is the lifecycle of a negotiation.
type NegotiationStatus string

const (
	StatusActive    NegotiationStatus = "active"
	StatusCompleted NegotiationStatus = "completed"
	StatusCancelled NegotiationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s NegotiationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s NegotiationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// NegotiationSession is the stored conversation and deal status between two users.
// A session is never reused once terminal: a later negotiation between the same
// pair gets a new ID and a new StartedAt.
type NegotiationSession struct {
	// ID is the unique identifier of the session (UUID).
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// MatchID is the pair key shared by every session between the two users.
	MatchID string `gorm:"type:uuid;not null;index" json:"match_id"`
	User1ID string `gorm:"not null;index" json:"user1_id"`
	User2ID string `gorm:"not null;index" json:"user2_id"`
	// InitiatorID opened the session; MatchType is from the initiator's side.
	InitiatorID    string            `gorm:"not null" json:"initiator_id"`
	MatchType      MatchType         `gorm:"type:text;not null" json:"match_type"`
	MatchedCardIDs pq.StringArray    `gorm:"type:text[]" json:"matched_card_ids"`
	Status         NegotiationStatus `gorm:"type:text;not null;index" json:"status"`
	// CloseReason is set when the session leaves Active.
	CloseReason string     `gorm:"type:text" json:"close_reason,omitempty"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Counterpart returns the other participant's user id.
func (s NegotiationSession) Counterpart(userID string) string {
	if s.User1ID == userID {
		return s.User2ID
	}
	return s.User1ID
}

// Has reports whether userID participates in the session.
func (s NegotiationSession) Has(userID string) bool {
	return s.User1ID == userID || s.User2ID == userID
}

// Summary converts the session into the directory entry used for matching.
func (s NegotiationSession) Summary(viewerID string) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		MatchID:       s.MatchID,
		CounterpartID: s.Counterpart(viewerID),
		Status:        s.Status,
		StartedAt:     s.StartedAt,
	}
}

// SessionSummary is the per-user view of an existing negotiation.
type SessionSummary struct {
	ID            string            `json:"id"`
	MatchID       string            `json:"match_id"`
	CounterpartID string            `json:"counterpart_id"`
	Status        NegotiationStatus `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
}

// Snapshot is one poll result: the full ordered log plus the authoritative status.
type Snapshot struct {
	Status   NegotiationStatus `json:"status"`
	Messages []MessageRecord   `json:"messages"`
}
