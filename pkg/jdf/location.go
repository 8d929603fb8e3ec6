package jdf

import "math"

type LocationPrecision string

const (
	// LocationPrecisionStop is an exact platform/pole coordinate
	LocationPrecisionStop LocationPrecision = "stop"
	// LocationPrecisionTown is a town-centroid fallback
	LocationPrecisionTown LocationPrecision = "town"
)

type Location struct {
	Latitude  float64
	Longitude float64

	Precision LocationPrecision
}

const earthRadiusMetres = 6371000

// DistanceFrom returns the great-circle distance between two locations in metres
func (l *Location) DistanceFrom(other *Location) float64 {
	lat1 := l.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - l.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusMetres * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
