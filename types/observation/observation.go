// Package observation defines the sample type the anomaly detector learns on.
package observation

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// An Observation is one (lat, lon, timestamp) sample of the tracked device,
// with hour-of-day and day-of-week derived at construction. Observations are
// immutable once created; they are only ever appended to the detector's
// history, never mutated or deleted.
type Observation struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"timestamp"`

	// Hour is the local hour of day, 0..23.
	Hour int `json:"hour"`
	// DayOfWeek is Monday=0 .. Sunday=6.
	// The model was trained on that encoding and it stays that way.
	DayOfWeek int `json:"day_of_week"`
}

// New derives an Observation from a validated coordinate pair and timestamp.
// A zero t means now.
func New(lat, lon float64, t time.Time) Observation {
	if t.IsZero() {
		t = time.Now()
	}
	return Observation{
		Lat:       lat,
		Lon:       lon,
		Time:      t,
		Hour:      t.Hour(),
		DayOfWeek: weekdayMondayZero(t.Weekday()),
	}
}

// weekdayMondayZero maps Go's Sunday=0 weekday onto Monday=0.
func weekdayMondayZero(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Point returns the observation position as an orb lon/lat point.
func (o Observation) Point() orb.Point {
	return orb.Point{o.Lon, o.Lat}
}

// Feature returns the observation as a GeoJSON point feature.
func (o Observation) Feature() *geojson.Feature {
	f := geojson.NewFeature(o.Point())
	f.Properties["Time"] = o.Time.Format(time.RFC3339)
	f.Properties["Hour"] = o.Hour
	f.Properties["DayOfWeek"] = o.DayOfWeek
	return f
}

// Validate rejects the values the device gateway must never let through.
// The detection core assumes validated floats and does not re-check.
func (o Observation) Validate() error {
	if math.IsNaN(o.Lat) || math.IsNaN(o.Lon) ||
		math.IsInf(o.Lat, 0) || math.IsInf(o.Lon, 0) {
		return fmt.Errorf("non-numeric coordinate: lat=%v lon=%v", o.Lat, o.Lon)
	}
	return nil
}

func (o Observation) String() string {
	return fmt.Sprintf("(%0.6f,%0.6f)@%s", o.Lat, o.Lon, o.Time.Format(time.RFC3339))
}
