package stream

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/madrasiot/trackd/common"
)

func divideByTwo(n int) int {
	return n / 2
}

func isNonZero(n int) bool {
	return n != 0
}

func TestStream1(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	myStream := Slice(ctx, data)
	result := Collect(ctx,
		Transform(ctx, divideByTwo,
			Filter(ctx, isNonZero,
				myStream)))

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestStream2(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	s := Slice(ctx, data)
	tf := Transform(ctx, divideByTwo, s)
	f := Filter(ctx, isNonZero, tf)
	result := Collect(ctx, f)

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestTickSampleMeterStop(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	before := runtime.NumGoroutine()
	m := NewTickSampleMeter(time.Millisecond)
	m.MarkPolled()
	m.MarkIngested(time.Now())
	time.Sleep(5 * time.Millisecond)
	m.Stop()

	deadline := time.After(2 * time.Second)
	for runtime.NumGoroutine() > before {
		select {
		case <-deadline:
			t.Fatal("meter goroutine still running after Stop")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestTickSampleMeterNil(t *testing.T) {
	var m *TickSampleMeter
	m.MarkPolled()
	m.MarkIngested(time.Now())
	m.Stop()
}

func TestFilterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := Slice(ctx, []int{1, 2, 3})
	result := Collect(context.Background(), Filter(ctx, isNonZero, s))
	if len(result) > 3 {
		t.Errorf("Expected at most 3 elements, got %v", result)
	}
}
