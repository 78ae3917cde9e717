package telemetry

import "math"

// GeoPoint is one geographic coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both coordinates are finite and in range.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		return false
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
