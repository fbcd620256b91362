package models

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"traderadar/backend/internal/geo"
)

// MatchType classifies why a counterpart is on the radar.
type MatchType string

const (
	TheyHaveWhatIWant MatchType = "they_have_what_i_want"
	IHaveWhatTheyWant MatchType = "i_have_what_they_want"
	History           MatchType = "history"
)

// Valid reports whether t is a known match type.
func (t MatchType) Valid() bool {
	switch t {
	case TheyHaveWhatIWant, IHaveWhatTheyWant, History:
		return true
	}
	return false
}

// Counterpart is the denormalized display data of the other user.
type Counterpart struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Match is a computed, never persisted pairing between the current user and a counterpart.
type Match struct {
	// ID is the pair key; identical from both sides and across recomputation.
	ID           string           `json:"id"`
	Counterpart  Counterpart      `json:"counterpart"`
	Type         MatchType        `json:"match_type"`
	MatchedCards []TradeListEntry `json:"matched_cards"`
	// DistanceMeters is nil when either location is unknown.
	DistanceMeters *float64          `json:"distance_meters,omitempty"`
	Status         NegotiationStatus `json:"status"`
}

// CardIDs returns the template ids of the matched cards in order.
func (m Match) CardIDs() []string {
	ids := make([]string, len(m.MatchedCards))
	for i, c := range m.MatchedCards {
		ids[i] = c.CardTemplateID
	}
	return ids
}

// RemovalList is the current user's list that loses the matched cards when
// the deal completes. ok is false for History matches.
func (m Match) RemovalList() (kind ListKind, ok bool) {
	switch m.Type {
	case TheyHaveWhatIWant:
		return WantList, true
	case IHaveWhatTheyWant:
		return HaveList, true
	}
	return "", false
}

// Profile is what the candidate pool knows about a nearby user.
type Profile struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
}

var pairNamespace = uuid.MustParse("6b7f3c0e-2f7a-4c1e-9d55-7a1f0f4b8e21")

// PairKey returns the stable match id for two users, independent of argument order.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return uuid.NewSHA1(pairNamespace, []byte(strings.Join(ids, ":"))).String()
}
