package analysis

import (
	"sort"
)

// ComputeDeltas sorts points by (lap, timestamp) and sets DT to the forward
// difference of timestamps within each lap. The first point of each lap has
// no delta. Returns a new slice.
func ComputeDeltas(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lap != out[j].Lap {
			return out[i].Lap < out[j].Lap
		}
		return out[i].Timestamp < out[j].Timestamp
	})

	for i := range out {
		out[i].DT = nil
		if i == 0 || out[i-1].Lap != out[i].Lap {
			continue
		}
		dt := out[i].Timestamp - out[i-1].Timestamp
		out[i].DT = &dt
	}
	return out
}

// FilterDeltas keeps points whose delta is present, positive and, when
// maxDT is set, no larger than maxDT. Deltas must already be computed on
// the unfiltered sequence.
func FilterDeltas(points []Point, maxDT *float64) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.DT == nil || !(*p.DT > 0) {
			continue
		}
		if maxDT != nil && *p.DT > *maxDT {
			continue
		}
		out = append(out, p)
	}
	return out
}
