package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListKind names one of a user's two trade lists.
type ListKind string

const (
	WantList ListKind = "want"
	HaveList ListKind = "have"
)

// Valid reports whether k is a known list kind.
func (k ListKind) Valid() bool {
	return k == WantList || k == HaveList
}

// TradeListEntry is one card in a want or have list.
type TradeListEntry struct {
	CardTemplateID string  `json:"card_template_id"`
	CardName       string  `json:"card_name"`
	TCGType        *string `json:"tcg_type,omitempty"`
	Rarity         *string `json:"rarity,omitempty"`
	ImageURL       *string `json:"image_url,omitempty"`
}

// ListEntry is the stored row behind a TradeListEntry.
type ListEntry struct {
	ID             string   `gorm:"primaryKey;type:uuid"`
	UserID         string   `gorm:"not null;uniqueIndex:idx_user_kind_card"`
	Kind           ListKind `gorm:"type:text;not null;uniqueIndex:idx_user_kind_card"`
	CardTemplateID string   `gorm:"not null;uniqueIndex:idx_user_kind_card"`
	CardName       string   `gorm:"not null"`
	TCGType        *string
	Rarity         *string
	ImageURL       *string
	CreatedAt      time.Time
}

// BeforeCreate assigns a UUID when the row has none.
func (e *ListEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}

// Entry returns the list-facing projection of the row.
func (e ListEntry) Entry() TradeListEntry {
	return TradeListEntry{
		CardTemplateID: e.CardTemplateID,
		CardName:       e.CardName,
		TCGType:        e.TCGType,
		Rarity:         e.Rarity,
		ImageURL:       e.ImageURL,
	}
}
