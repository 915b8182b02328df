// Package geo has the great-circle helpers used to show how far a bus is
// from a stop.
package geo

import (
	"fmt"
	"math"

	"nextbus/internal/model"
)

const earthRadiusMeters = 6_371_000

// Haversine returns the great-circle distance in meters between two lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Distance is Haversine between two model locations.
func Distance(a, b model.Location) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// FormatDistance renders meters as "350 m" below a kilometre and "2.4 km" above.
func FormatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
