package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"

	"traderadar/backend/internal/geo"
)

// User представляє користувача в системі.
// Містить відображуване ім'я, аватар та ігри, в які він грає.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"` // UUID
	DisplayName string         `gorm:"not null" json:"display_name"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	TCGTypes    pq.StringArray `gorm:"type:text[]" json:"tcg_types,omitempty"`
}

// BeforeCreate — це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Profile returns the public view of u placed at loc.
func (u User) Profile(loc *geo.Coordinate) Profile {
	return Profile{
		UserID:      u.ID,
		DisplayName: strings.TrimSpace(u.DisplayName),
		AvatarURL:   u.AvatarURL,
		Location:    loc,
	}
}
