package analysis

import (
	"lapfinder/internal/telemetry"
)

// Result holds the ranked reports plus the intermediate data a caller may
// want to display or persist
type Result struct {
	Reports []SegmentReport
	Records []LapSegmentRecord
	Laps    []LapTime
	Samples int // samples retained after cleaning and delta filtering
}

// Analyze runs the full pipeline over a raw telemetry table and returns one
// report per segment ranked by time loss.
func Analyze(t telemetry.Table, opts Options) ([]SegmentReport, error) {
	res, err := AnalyzeDetailed(t, opts)
	if err != nil {
		return nil, err
	}
	return res.Reports, nil
}

// AnalyzeDetailed is Analyze with the intermediate per-lap data.
// Only structurally invalid input or parameters produce an error; bad or
// insufficient data yields an empty result.
func AnalyzeDetailed(t telemetry.Table, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	samples, err := telemetry.Clean(t)
	if err != nil {
		return nil, err
	}

	points, err := AssignSegments(samples, opts.Segments)
	if err != nil {
		return nil, err
	}
	points = FilterDeltas(ComputeDeltas(points), opts.MaxDT)

	records := LapSegmentMetrics(points, opts.Thresholds())
	return &Result{
		Reports: Aggregate(records),
		Records: records,
		Laps:    LapTimes(points),
		Samples: len(points),
	}, nil
}
