package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/madrasiot/trackd/types/observation"
)

func TestSpeedZeroTimeDelta(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := observation.New(13.0827, 80.2707, ts)
	b := observation.New(50.0, 50.0, ts)
	// Identical timestamps define speed 0, for any distance.
	if got := Speed(a, b); got != 0 {
		t.Errorf("zero delta: got %v, want 0", got)
	}
}

func TestSpeedOneDegreeLatitudePerHour(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := observation.New(13.0, 80.0, ts)
	b := observation.New(14.0, 80.0, ts.Add(time.Hour))
	got := Speed(a, b)
	// One degree of latitude is ~111 km; over one hour, ~111 km/h (±1%).
	if math.Abs(got-111) > 111*0.01 {
		t.Errorf("got %v km/h, want ~111", got)
	}
}

func TestSpeedNegativeWhenOutOfOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := observation.New(13.0, 80.0, ts)
	b := observation.New(14.0, 80.0, ts.Add(-time.Hour))
	// Insertion order governs adjacency; a later-inserted but earlier-stamped
	// point yields a negative speed, as the elapsed time is negative.
	if got := Speed(a, b); got >= 0 {
		t.Errorf("got %v, want negative", got)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Chennai to (50,50) is about 4940 km on the 6371 km sphere.
	d := haversineKm(13.0827, 80.2707, 50, 50)
	if math.Abs(d-4943) > 4943*0.01 {
		t.Errorf("got %v km, want ~4943", d)
	}
}

func TestExtractFeaturesSpeedRequiresTwoEntries(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := observation.New(13.0, 80.0, ts.Add(2*time.Hour))

	v := ExtractFeatures(obs, nil)
	if len(v) != FeatureDim {
		t.Fatalf("got %d features, want %d", len(v), FeatureDim)
	}
	if v[4] != 0 {
		t.Errorf("empty history: speed %v, want 0", v[4])
	}

	one := []observation.Observation{observation.New(13.0, 80.0, ts)}
	if v := ExtractFeatures(obs, one); v[4] != 0 {
		t.Errorf("single-entry history: speed %v, want 0", v[4])
	}

	two := append(one, observation.New(13.5, 80.0, ts.Add(time.Hour)))
	v = ExtractFeatures(obs, two)
	// Speed anchors on the second-to-last entry, not the last.
	want := Speed(two[0], obs)
	if v[4] != want {
		t.Errorf("speed %v, want %v (anchored on second-to-last)", v[4], want)
	}
	if want == 0 {
		t.Fatal("test is vacuous, anchor speed is 0")
	}
}
