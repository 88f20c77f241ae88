package domain

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371008.8

// Immutable geographic location (latitude, longitude in degrees).
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the location is a finite coordinate within WGS84 bounds.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Return coordinates as [lon, lat] for external API compatibility.
func (l Location) CoordsToList() []float64 { return []float64{l.Lon, l.Lat} }

// Key is a stable cache key with ~10cm precision.
func (l Location) Key() string { return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lon) }

// DistanceMeters returns the great-circle distance to other.
func (l Location) DistanceMeters(other Location) float64 {
	lat1 := l.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (other.Lon - l.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
