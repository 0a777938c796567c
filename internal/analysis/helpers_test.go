package analysis

import (
	"math"
	"strconv"
	"testing"

	"lapfinder/internal/telemetry"
)

const tolerance = 1e-9

func ptr(v float64) *float64 {
	return &v
}

// makePoint creates a point in the given lap and segment. A negative dt
// means the point has no delta.
func makePoint(lap, segment int, dt, speed, throttle, brake float64) Point {
	p := Point{
		Sample: telemetry.Sample{
			Lap:      lap,
			Speed:    ptr(speed),
			Throttle: ptr(throttle),
			Brake:    ptr(brake),
		},
		Segment: segment,
	}
	if dt >= 0 {
		p.DT = ptr(dt)
	}
	return p
}

// makeRow formats one telemetry row in RequiredColumns order
func makeRow(ts float64, lap int, speed, throttle, brake, pos float64) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{f(ts), strconv.Itoa(lap), f(speed), f(throttle), f(brake), "0", f(pos)}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if !approxEqual(got, want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertOptional(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %v", name, want)
		return
	}
	assertFloat(t, name, *got, want)
}
