package model

import "math"

// Coordinate is a point on the globe in decimal degrees
type Coordinate struct {
	Latitude  float64 // [-90, 90]
	Longitude float64 // [-180, 180]
}

// Validate returns ErrInvalidCoordinate if either component is out of range or not finite
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return ErrInvalidCoordinate
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}
