package analysis

import (
	"math"
	"strconv"

	"lapfinder/internal/telemetry"
)

// Point is a cleaned sample annotated with its segment and time delta
type Point struct {
	telemetry.Sample
	Segment int      // zero-based segment index
	DT      *float64 // seconds since the previous sample of the same lap
}

// SegmentLabel returns the stable label ("S1".."SN") for a zero-based index
func SegmentLabel(index int) string {
	return "S" + strconv.Itoa(index+1)
}

// SegmentIndex maps a normalized track position onto one of n equal-width
// buckets. Negative or NaN positions fall into the first segment and 1.0
// falls into the last.
func SegmentIndex(pos float64, n int) int {
	if math.IsNaN(pos) || pos < 0 {
		return 0
	}
	idx := int(pos / (1.0 / float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// AssignSegments labels every sample with its track segment
func AssignSegments(samples []telemetry.Sample, n int) ([]Point, error) {
	if n <= 0 {
		return nil, &ConfigError{Field: "segments", Reason: "must be a positive integer, got " + strconv.Itoa(n)}
	}

	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{Sample: s, Segment: SegmentIndex(s.TrackPosition, n)}
	}
	return points, nil
}
