package observation

import (
	"math"
	"testing"
	"time"
)

func TestNewDerivesHourAndWeekday(t *testing.T) {
	// 2024-11-18 is a Monday.
	ts := time.Date(2024, 11, 18, 17, 54, 27, 0, time.UTC)
	o := New(46.9292804, -114.0877518, ts)
	if o.Hour != 17 {
		t.Errorf("hour: got %d, want 17", o.Hour)
	}
	if o.DayOfWeek != 0 {
		t.Errorf("weekday: got %d, want 0 (Monday)", o.DayOfWeek)
	}
	// Sunday maps to 6.
	sun := New(0, 0, time.Date(2024, 11, 17, 1, 0, 0, 0, time.UTC))
	if sun.DayOfWeek != 6 {
		t.Errorf("weekday: got %d, want 6 (Sunday)", sun.DayOfWeek)
	}
}

func TestNewZeroTimeDefaultsToNow(t *testing.T) {
	before := time.Now()
	o := New(1, 2, time.Time{})
	if o.Time.Before(before) || time.Since(o.Time) > time.Minute {
		t.Errorf("zero timestamp not defaulted to now: %v", o.Time)
	}
}

func TestPointIsLonLat(t *testing.T) {
	o := New(13.0827, 80.2707, time.Now())
	p := o.Point()
	if p.Lon() != 80.2707 || p.Lat() != 13.0827 {
		t.Errorf("point order wrong: %v", p)
	}
}

func TestValidate(t *testing.T) {
	if err := New(13.0827, 80.2707, time.Now()).Validate(); err != nil {
		t.Errorf("valid observation rejected: %v", err)
	}
	if err := New(math.NaN(), 80.2707, time.Now()).Validate(); err == nil {
		t.Error("NaN latitude accepted")
	}
	if err := New(13.0827, math.Inf(1), time.Now()).Validate(); err == nil {
		t.Error("Inf longitude accepted")
	}
}
