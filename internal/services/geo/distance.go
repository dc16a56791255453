// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/mcoot/geoguess/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for scoring
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometres.
// Callers validate coordinate ranges first; invalid input propagates NaN.
func DistanceKm(a, b model.Coordinate) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h fractionally past 1 for antipodal points
	h = math.Min(h, 1)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
