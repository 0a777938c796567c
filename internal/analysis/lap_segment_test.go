package analysis

import (
	"testing"
)

var defaultThresholds = Thresholds{Brake: DefaultBrakeThreshold, Throttle: DefaultThrottleThreshold}

func TestLapSegmentMetrics_ApexSplit(t *testing.T) {
	// speed dips to 30 at index 1; throttle returns at index 2
	group := []Point{
		makePoint(1, 0, 0.1, 50, 0.5, 0.0),
		makePoint(1, 0, 0.1, 30, 0.1, 0.3),
		makePoint(1, 0, 0.1, 45, 0.8, 0.0),
	}

	records := LapSegmentMetrics(group, defaultThresholds)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0]

	if r.Lap != 1 || r.Segment != "S1" || r.Samples != 3 {
		t.Errorf("record key = (%d, %s, %d samples), want (1, S1, 3)", r.Lap, r.Segment, r.Samples)
	}
	assertFloat(t, "SegDT", r.SegDT, 0.3)
	assertFloat(t, "BrakeDT", r.BrakeDT, 0.1)
	assertFloat(t, "ThrottleDT", r.ThrottleDT, 0.2)
	assertFloat(t, "CoastDT", r.CoastDT, 0)

	assertOptional(t, "EntryDT", r.EntryDT, 0.2)
	// the throttle reapplication sample counts toward both delay and exit
	assertOptional(t, "ExitThrottleDelayDT", r.ExitThrottleDelayDT, 0.1)
	assertOptional(t, "ExitDT", r.ExitDT, 0.1)

	assertOptional(t, "AvgSpeed", r.AvgSpeed, 125.0/3)
	assertOptional(t, "AvgThrottle", r.AvgThrottle, 1.4/3)
	assertOptional(t, "AvgBrake", r.AvgBrake, 0.1)
}

func TestLapSegmentMetrics_MissingFirstDelta(t *testing.T) {
	group := []Point{
		makePoint(1, 0, -1, 50, 0.5, 0.0),
		makePoint(1, 0, 0.1, 30, 0.1, 0.3),
		makePoint(1, 0, 0.1, 45, 0.8, 0.0),
	}

	r := LapSegmentMetrics(group, defaultThresholds)[0]
	assertFloat(t, "SegDT", r.SegDT, 0.2)
	assertOptional(t, "EntryDT", r.EntryDT, 0.1)
	assertOptional(t, "ExitThrottleDelayDT", r.ExitThrottleDelayDT, 0.1)
	assertOptional(t, "ExitDT", r.ExitDT, 0.1)
}

func TestLapSegmentMetrics_SplitAccountsForSegmentTime(t *testing.T) {
	tests := []struct {
		name    string
		group   []Point
		overlap float64 // time counted twice at the throttle reapplication sample
	}{
		{
			name: "never back on throttle",
			group: []Point{
				makePoint(1, 0, 0.05, 120, 0.9, 0.0),
				makePoint(1, 0, 0.07, 80, 0.0, 0.6),
				makePoint(1, 0, 0.11, 85, 0.1, 0.0),
				makePoint(1, 0, 0.13, 90, 0.2, 0.0),
			},
			overlap: 0,
		},
		{
			name: "throttle reapplied after coasting",
			group: []Point{
				makePoint(1, 0, 0.05, 120, 0.9, 0.0),
				makePoint(1, 0, 0.07, 80, 0.0, 0.6),
				makePoint(1, 0, 0.11, 85, 0.1, 0.0),
				makePoint(1, 0, 0.13, 95, 0.7, 0.0),
				makePoint(1, 0, 0.17, 110, 0.9, 0.0),
			},
			overlap: 0.13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := LapSegmentMetrics(tt.group, defaultThresholds)[0]
			if r.EntryDT == nil || r.ExitDT == nil || r.ExitThrottleDelayDT == nil {
				t.Fatal("apex split undefined for interior apex")
			}
			sum := *r.EntryDT + *r.ExitThrottleDelayDT + *r.ExitDT
			assertFloat(t, "entry+delay+exit", sum, r.SegDT+tt.overlap)
		})
	}
}

func TestLapSegmentMetrics_BrakingTakesPrecedence(t *testing.T) {
	group := []Point{
		makePoint(1, 0, 0.1, 100, 0.5, 0.0),
		makePoint(1, 0, 0.1, 60, 0.0, 0.0),
		makePoint(1, 0, 0.1, 70, 0.9, 0.5), // both pedals: braking
		makePoint(1, 0, 0.1, 80, 0.9, 0.0),
	}

	r := LapSegmentMetrics(group, defaultThresholds)[0]
	assertFloat(t, "BrakeDT", r.BrakeDT, 0.1)
	assertFloat(t, "ThrottleDT", r.ThrottleDT, 0.2)
	assertFloat(t, "CoastDT", r.CoastDT, 0.1)
	assertFloat(t, "brake+throttle+coast", r.BrakeDT+r.ThrottleDT+r.CoastDT, r.SegDT)

	// the overlapping sample is not a throttle reapplication
	assertOptional(t, "ExitThrottleDelayDT", r.ExitThrottleDelayDT, 0.2)
	assertOptional(t, "ExitDT", r.ExitDT, 0.1)
}

func TestLapSegmentMetrics_Degenerate(t *testing.T) {
	t.Run("single sample", func(t *testing.T) {
		r := LapSegmentMetrics([]Point{makePoint(1, 2, 0.1, 90, 0.3, 0)}, defaultThresholds)[0]
		if r.EntryDT != nil || r.ExitDT != nil || r.ExitThrottleDelayDT != nil {
			t.Error("apex split must be undefined for a single sample")
		}
		assertFloat(t, "SegDT", r.SegDT, 0.1)
		if r.Segment != "S3" {
			t.Errorf("Segment = %q, want S3", r.Segment)
		}
	})

	t.Run("no speed readings", func(t *testing.T) {
		group := []Point{
			makePoint(1, 0, 0.1, 0, 0.3, 0),
			makePoint(1, 0, 0.1, 0, 0.3, 0),
		}
		for i := range group {
			group[i].Speed = nil
		}
		r := LapSegmentMetrics(group, defaultThresholds)[0]
		if r.EntryDT != nil || r.ExitDT != nil || r.ExitThrottleDelayDT != nil {
			t.Error("apex split must be undefined without speed")
		}
		if r.AvgSpeed != nil {
			t.Errorf("AvgSpeed = %v, want nil", *r.AvgSpeed)
		}
	})

	t.Run("apex at last sample", func(t *testing.T) {
		group := []Point{
			makePoint(1, 0, 0.1, 90, 0.0, 0.5),
			makePoint(1, 0, 0.2, 60, 0.0, 0.5),
		}
		r := LapSegmentMetrics(group, defaultThresholds)[0]
		assertOptional(t, "EntryDT", r.EntryDT, 0.3)
		assertOptional(t, "ExitThrottleDelayDT", r.ExitThrottleDelayDT, 0)
		assertOptional(t, "ExitDT", r.ExitDT, 0)
	})

	t.Run("speed ties use first occurrence", func(t *testing.T) {
		group := []Point{
			makePoint(1, 0, 0.1, 50, 0.0, 0.0),
			makePoint(1, 0, 0.1, 40, 0.0, 0.0),
			makePoint(1, 0, 0.1, 40, 0.0, 0.0),
			makePoint(1, 0, 0.1, 60, 0.5, 0.0),
		}
		r := LapSegmentMetrics(group, defaultThresholds)[0]
		assertOptional(t, "EntryDT", r.EntryDT, 0.2)
		assertOptional(t, "ExitThrottleDelayDT", r.ExitThrottleDelayDT, 0.2)
	})
}

func TestLapSegmentMetrics_Grouping(t *testing.T) {
	points := []Point{
		makePoint(1, 0, 0.1, 100, 0.5, 0),
		makePoint(1, 1, 0.1, 100, 0.5, 0),
		makePoint(1, 0, 0.1, 100, 0.5, 0), // wraps back into S1
		makePoint(2, 1, 0.2, 100, 0.5, 0),
	}

	records := LapSegmentMetrics(points, defaultThresholds)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	want := []struct {
		lap     int
		segment string
		segDT   float64
	}{
		{1, "S1", 0.2},
		{1, "S2", 0.1},
		{2, "S2", 0.2},
	}
	for i, w := range want {
		if records[i].Lap != w.lap || records[i].Segment != w.segment {
			t.Errorf("records[%d] = (%d, %s), want (%d, %s)", i, records[i].Lap, records[i].Segment, w.lap, w.segment)
		}
		assertFloat(t, "SegDT", records[i].SegDT, w.segDT)
	}
}
