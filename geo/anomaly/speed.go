package anomaly

import (
	"math"

	"github.com/madrasiot/trackd/types/observation"
)

// earthRadiusKm is the spherical-earth radius the model's speed feature is
// defined on. orb's geo.Distance pins the WGS84 equatorial radius instead,
// which would shift every trained feature by ~0.1%.
const earthRadiusKm = 6371

// Speed returns the movement speed between two observations in km/h:
// haversine great-circle distance over elapsed hours b.Time-a.Time.
// Callers pass the earlier observation as a; out-of-order observations
// yield a negative speed. A zero time delta yields 0, not an infinity.
func Speed(a, b observation.Observation) float64 {
	elapsed := b.Time.Sub(a.Time).Hours()
	if elapsed == 0 {
		return 0
	}
	return haversineKm(a.Lat, a.Lon, b.Lat, b.Lon) / elapsed
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := radians(lat2 - lat1)
	dlon := radians(lon2 - lon1)
	s := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
