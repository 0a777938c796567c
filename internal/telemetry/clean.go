package telemetry

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Clean validates and cleans a raw table:
//   - fails with *SchemaError when any required column is absent
//   - coerces required columns to numbers (unparseable cells become missing)
//   - drops rows missing timestamp, lap or track_position
//   - clips track_position, throttle and brake into [0,1]
//   - sorts by (lap, timestamp), keeping input order for ties
//
// The input table is never modified.
func Clean(t Table) ([]Sample, error) {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	cell := func(row []string, col string) *float64 {
		i := index[col]
		if i >= len(row) {
			return nil
		}
		return parseNumber(row[i])
	}

	samples := make([]Sample, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts := cell(row, "timestamp")
		lap := cell(row, "lap")
		pos := cell(row, "track_position")
		if ts == nil || pos == nil || lap == nil || *lap != math.Trunc(*lap) {
			continue
		}

		samples = append(samples, Sample{
			Timestamp:     *ts,
			Lap:           int(*lap),
			Speed:         cell(row, "speed"),
			Throttle:      clipUnit(cell(row, "throttle")),
			Brake:         clipUnit(cell(row, "brake")),
			Steering:      cell(row, "steering"),
			TrackPosition: clip(*pos, 0, 1),
		})
	}

	SortByLapTime(samples)
	return samples, nil
}

// SortByLapTime orders samples by lap then timestamp, stable for ties
func SortByLapTime(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Lap != samples[j].Lap {
			return samples[i].Lap < samples[j].Lap
		}
		return samples[i].Timestamp < samples[j].Timestamp
	})
}

// parseNumber returns nil for empty, non-numeric, NaN or infinite cells
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func clipUnit(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := clip(*v, 0, 1)
	return &c
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
