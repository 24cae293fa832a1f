package recommend

import "math"

const earthRadiusKm = 6371.0

// UnknownDistanceKm is the sentinel returned when either point is missing
// or invalid: half the Earth's circumference, farther than any real pair.
// Scoring degrades on the sentinel instead of failing.
const UnknownDistanceKm = 20037.5

// DistanceKm returns the great-circle distance between two points using
// the haversine formula.
func DistanceKm(a, b *Location) float64 {
	if !a.Valid() || !b.Valid() {
		return UnknownDistanceKm
	}

	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinRadius reports whether point lies within radiusKm of center.
// A missing point is never within any practical radius.
func WithinRadius(point, center *Location, radiusKm float64) bool {
	return DistanceKm(point, center) <= radiusKm
}
