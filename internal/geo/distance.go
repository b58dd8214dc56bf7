// Package geo provides great-circle distance math and radius filtering for
// station collections.
package geo

import (
	"math"

	"aqmon/internal/airquality"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance in kilometers between two
// points given in decimal degrees, using the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// StationsWithinRadius returns the stations whose distance to the center is
// at most radiusKm. Stations with missing or non-numeric coordinates are
// skipped.
func StationsWithinRadius(stations []airquality.Station, centerLat, centerLon, radiusKm float64) []airquality.Station {
	var out []airquality.Station
	for _, s := range stations {
		lat, lon, err := s.Coordinates()
		if err != nil {
			continue
		}
		if DistanceKm(centerLat, centerLon, lat, lon) <= radiusKm {
			out = append(out, s)
		}
	}
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
