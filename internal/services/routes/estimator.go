package routes

import (
	"fmt"
	"math"

	geo "github.com/kellydunn/golang-geo"

	"github.com/killallgit/route-planner-api/internal/services/geocoding"
)

// DefaultDetourFactor scales great-circle distance to an approximate road
// distance
const DefaultDetourFactor = 1.3

// DefaultSpeeds are average speeds in km/h per vehicle category value
var DefaultSpeeds = map[int]float64{
	0: 80, // I
	1: 70, // II
	2: 65, // III
	3: 60, // IV
	4: 55, // V
}

// Estimate is the outcome of a route estimation
type Estimate struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Estimator approximates road distance and travel time between two points
type Estimator struct {
	detourFactor float64
	speeds       map[int]float64
}

// NewEstimator returns an estimator with the default detour factor and
// speeds
func NewEstimator() *Estimator {
	return NewEstimatorWith(DefaultDetourFactor, DefaultSpeeds)
}

// NewEstimatorWith returns an estimator with custom parameters. A factor
// below 1 is raised to 1.
func NewEstimatorWith(detourFactor float64, speeds map[int]float64) *Estimator {
	if detourFactor < 1 {
		detourFactor = 1
	}
	s := make(map[int]float64, len(speeds))
	for k, v := range speeds {
		s[k] = v
	}
	return &Estimator{detourFactor: detourFactor, speeds: s}
}

// Estimate computes distance and duration for a vehicle category
func (e *Estimator) Estimate(from, to geocoding.Coordinates, category int) (Estimate, error) {
	if !from.Valid() {
		return Estimate{}, fmt.Errorf("invalid origin %v", from.LonLat())
	}
	if !to.Valid() {
		return Estimate{}, fmt.Errorf("invalid destination %v", to.LonLat())
	}

	speed, ok := e.speeds[category]
	if !ok || speed <= 0 {
		return Estimate{}, fmt.Errorf("no average speed for category %d", category)
	}

	km := geo.NewPoint(from.Lat, from.Lon).GreatCircleDistance(geo.NewPoint(to.Lat, to.Lon))
	km *= e.detourFactor

	return Estimate{
		DistanceKm:      round1(km),
		DurationMinutes: round1(km / speed * 60),
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
