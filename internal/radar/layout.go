package radar

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/models"
)

// Layout places a match on a radar of the given radius, relative to the
// centre marker. The angle depends only on the match id, so a counterpart
// keeps its bearing across refreshes. Distance is clamped at the display cap,
// and an unknown distance puts the match on the outer edge.
func Layout(m models.Match, radius float64) (x, y float64) {
	theta := Angle(m.ID) * math.Pi / 180
	r := radius * (config.MinRadiusRatio + (1-config.MinRadiusRatio)*distanceRatio(m.DistanceMeters))
	return r * math.Cos(theta), r * math.Sin(theta)
}

// Angle returns the bearing of a match id in whole degrees, [0, 360).
func Angle(matchID string) float64 {
	return float64(xxhash.Sum64String(matchID) % 360)
}

func distanceRatio(d *float64) float64 {
	if d == nil {
		return 1
	}
	return math.Min(math.Max(*d, 0)/config.MaxDisplayDistanceMeters, 1)
}
