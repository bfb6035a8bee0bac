// Package estimate projects ride duration and energy cost for one athlete
// over a race or stage segment.
package estimate

import (
	"fmt"
	"math"
)

const (
	DefaultSpeedKmh        = 25.0
	DefaultDurationMinutes = 240.0
	DefaultWeightKg        = 70.0
	DefaultEnergyRate      = 10.0 // kJ per hour per kg
)

// ReferenceSpeeds are the fixed paces shown as time-to-complete projections
var ReferenceSpeeds = []float64{36, 41}

// Segment describes what is ridden: a whole race or one stage
type Segment struct {
	DistanceKm float64
	ElevationM float64
	SpeedKmh   float64

	// ExplicitDurationMin overrides the speed-based duration when > 0
	ExplicitDurationMin float64
}

// Projection is the time needed to cover a segment at a fixed speed
type Projection struct {
	SpeedKmh float64
	Minutes  float64
	Label    string
}

// Estimate is the per-athlete result for one segment
type Estimate struct {
	DurationMinutes float64
	DurationSeconds int64
	PredictedKJ     float64

	// KJPerHourPerKg is the achieved rate, zero when it cannot be derived
	KJPerHourPerKg float64

	Projections []Projection
}

// Compute estimates duration and energy for an athlete of the given weight
// and energy rate. Non-positive weight and rate fall back to the defaults.
func Compute(seg Segment, weightKg, rate float64) Estimate {
	if weightKg <= 0 {
		weightKg = DefaultWeightKg
	}
	if rate <= 0 {
		rate = DefaultEnergyRate
	}

	minutes := Duration(seg)
	est := Estimate{
		DurationMinutes: minutes,
		DurationSeconds: int64(minutes * 60),
	}

	hours := minutes / 60
	if hours > 0 {
		est.PredictedKJ = hours * rate * weightKg
	}
	if est.PredictedKJ > 0 && minutes > 0 {
		est.KJPerHourPerKg = est.PredictedKJ / hours / weightKg
	}

	if seg.DistanceKm > 0 {
		for _, speed := range ReferenceSpeeds {
			m := seg.DistanceKm / speed * 60
			est.Projections = append(est.Projections, Projection{
				SpeedKmh: speed,
				Minutes:  m,
				Label:    FormatDuration(m),
			})
		}
	}

	return est
}

// Duration returns the segment duration in minutes
func Duration(seg Segment) float64 {
	if seg.ExplicitDurationMin > 0 {
		return seg.ExplicitDurationMin
	}
	if seg.DistanceKm <= 0 {
		return DefaultDurationMinutes
	}

	speed := seg.SpeedKmh
	if speed <= 0 {
		speed = DefaultSpeedKmh
	}
	return seg.DistanceKm / speed * 60
}

// FormatDuration renders minutes as "{h}h {m}m", truncating both parts
func FormatDuration(minutes float64) string {
	if minutes < 0 {
		minutes = 0
	}
	h := int(minutes / 60)
	m := int(math.Mod(minutes, 60))
	return fmt.Sprintf("%dh %dm", h, m)
}
