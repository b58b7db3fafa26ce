package gateway

import (
	"math"
	"math/rand"
	"time"

	"github.com/madrasiot/trackd/common"
	"github.com/madrasiot/trackd/params"
)

// FallbackSample is the synthetic stand-in served when the device or network
// is unreachable. Callers predict against it; they must not ingest it.
func FallbackSample() Sample {
	return Sample{
		Lat:  params.FallbackLat,
		Lon:  params.FallbackLon,
		Time: time.Now(),
	}
}

// A Wanderer emits synthetic samples random-walking from the fallback
// coordinate at roughly walking speed. The background sampler uses one in
// synthetic mode, when no device is configured.
type Wanderer struct {
	rng      *rand.Rand
	lat, lon float64
	last     time.Time
}

func NewWanderer(seed int64) *Wanderer {
	return &Wanderer{
		rng: rand.New(rand.NewSource(seed)),
		lat: params.FallbackLat,
		lon: params.FallbackLon,
	}
}

// Next advances the walk and returns the new fix, stamped now.
func (w *Wanderer) Next() Sample {
	now := time.Now()
	if !w.last.IsZero() {
		elapsed := now.Sub(w.last).Hours()
		stepKm := common.SpeedOfWalkingKmH * elapsed
		bearing := w.rng.Float64() * 2 * math.Pi
		// Small-angle step; fine for a walk around one city.
		w.lat += (stepKm / 111.0) * math.Cos(bearing)
		w.lon += (stepKm / 111.0) * math.Sin(bearing) / math.Cos(w.lat*math.Pi/180)
	}
	w.last = now
	return Sample{Lat: w.lat, Lon: w.lon, Time: now}
}
