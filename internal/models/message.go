package models

import "time"

// MessageRecord represents a negotiation message saved in PostgreSQL.
// The server assigns ID (a ULID) and SentAt; both are immutable.
type MessageRecord struct {
	// ID is a ULID, so lexical order follows creation order.
	ID string `gorm:"primaryKey;type:char(26)" json:"id"`
	// SessionID is the negotiation session the message belongs to.
	SessionID string `gorm:"type:uuid;not null;index:idx_session_msg" json:"session_id"`
	// SenderID is the user who sent the message.
	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	// Content is the message text.
	Content string `gorm:"type:text;not null" json:"content"`
	// SentAt is the server timestamp used for total ordering.
	SentAt time.Time `gorm:"not null;index:idx_session_msg" json:"sent_at"`
}

// Message is the client-side projection of a MessageRecord.
type Message struct {
	ID                  string    `json:"id"`
	Content             string    `json:"content"`
	SentAt              time.Time `json:"sent_at"`
	SenderIsCurrentUser bool      `json:"sender_is_current_user"`
}

// ProjectMessage derives the viewer's Message from a stored record.
func ProjectMessage(r MessageRecord, viewerID string) Message {
	return Message{
		ID:                  r.ID,
		Content:             r.Content,
		SentAt:              r.SentAt,
		SenderIsCurrentUser: r.SenderID == viewerID,
	}
}
