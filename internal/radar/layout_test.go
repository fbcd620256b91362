package radar_test

import (
	"math"
	"testing"

	"traderadar/backend/internal/models"
	"traderadar/backend/internal/radar"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestLayout_Deterministic(t *testing.T) {
	m := models.Match{ID: models.PairKey("me", "them"), DistanceMeters: ptr(2500)}

	x1, y1 := radar.Layout(m, 150)
	x2, y2 := radar.Layout(m, 150)

	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
}

func TestLayout_AngleVariesWithID(t *testing.T) {
	angles := map[float64]struct{}{}
	for _, other := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		angles[radar.Angle(models.PairKey("me", other))] = struct{}{}
	}

	assert.Greater(t, len(angles), 1, "different ids should generally land at different angles")
}

func TestLayout_RadialDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance *float64
		want     float64
	}{
		{"at centre floor", ptr(0), 0.2 * 100},
		{"half way", ptr(5_000), (0.2 + 0.8*0.5) * 100},
		{"at cap", ptr(10_000), 100},
		{"beyond cap is clamped", ptr(50_000), 100},
		{"unknown is outer edge", nil, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := radar.Layout(models.Match{ID: "fixed", DistanceMeters: tt.distance}, 100)
			assert.InDelta(t, tt.want, math.Hypot(x, y), 1e-9)
		})
	}
}

func TestAngle_Range(t *testing.T) {
	for _, id := range []string{"", "x", models.PairKey("a", "b")} {
		a := radar.Angle(id)
		assert.GreaterOrEqual(t, a, 0.0)
		assert.Less(t, a, 360.0)
	}
}
