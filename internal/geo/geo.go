// Package geo measures distances between points on the Earth's surface.
package geo

import (
	"math"

	"github.com/dukerupert/roomies/internal/model"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula.
func DistanceMeters(a, b model.Location) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Within reports whether b lies within radius metres of a.
func Within(a, b model.Location, radius float64) bool {
	return DistanceMeters(a, b) <= radius
}

// Valid reports whether loc is a real coordinate.
func Valid(loc model.Location) bool {
	return loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180 &&
		!math.IsNaN(loc.Latitude) && !math.IsNaN(loc.Longitude)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
