package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SegmentReport is one ranked output row per segment.
// Nullable fields are nil when no lap produced a value for them. Loss
// fields are always defined: an undefined side counts as no loss.
type SegmentReport struct {
	Segment string `json:"segment"`
	Laps    int    `json:"laps"`

	AvgDT   float64 `json:"avg_dt"`
	BestDT  float64 `json:"best_dt"`
	BestLap int     `json:"best_lap"`

	TimeLoss    float64  `json:"time_loss"`
	Loss        float64  `json:"loss"` // legacy alias of time_loss
	LossPercent *float64 `json:"loss_percent"`

	BrakeTimeLoss         float64 `json:"brake_time_loss"`
	ExitTimeLoss          float64 `json:"exit_time_loss"`
	ExitThrottleDelayLoss float64 `json:"exit_throttle_delay_loss"`
	EntryTimeLoss         float64 `json:"entry_time_loss"`
	TopCause              string  `json:"top_cause"`

	AvgSpeed    *float64 `json:"avg_speed"`
	AvgThrottle *float64 `json:"avg_throttle"`
	AvgBrake    *float64 `json:"avg_brake"`

	AvgBrakeDT             float64  `json:"avg_brake_dt"`
	AvgExitDT              *float64 `json:"avg_exit_dt"`
	AvgExitThrottleDelayDT *float64 `json:"avg_exit_throttle_delay_dt"`
	AvgEntryDT             *float64 `json:"avg_entry_dt"`

	BestBrakeDT             float64  `json:"best_brake_dt"`
	BestExitDT              *float64 `json:"best_exit_dt"`
	BestExitThrottleDelayDT *float64 `json:"best_exit_throttle_delay_dt"`
	BestEntryDT             *float64 `json:"best_entry_dt"`
}

// Aggregate compares every lap against the per-segment baseline lap and
// ranks segments by time loss, largest first. Ties keep segment order.
func Aggregate(records []LapSegmentRecord) []SegmentReport {
	bySegment := make(map[int][]LapSegmentRecord)
	for _, r := range records {
		bySegment[r.SegmentIndex] = append(bySegment[r.SegmentIndex], r)
	}

	segments := make([]int, 0, len(bySegment))
	for idx := range bySegment {
		segments = append(segments, idx)
	}
	sort.Ints(segments)

	reports := make([]SegmentReport, 0, len(segments))
	for _, idx := range segments {
		reports = append(reports, segmentReport(bySegment[idx]))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].TimeLoss > reports[j].TimeLoss
	})
	return reports
}

func segmentReport(laps []LapSegmentRecord) SegmentReport {
	best := baseline(laps)

	var segDT, brakeDT []float64
	var exitDT, delayDT, entryDT, speed, throttle, brake []*float64
	for _, r := range laps {
		segDT = append(segDT, r.SegDT)
		brakeDT = append(brakeDT, r.BrakeDT)
		exitDT = append(exitDT, r.ExitDT)
		delayDT = append(delayDT, r.ExitThrottleDelayDT)
		entryDT = append(entryDT, r.EntryDT)
		speed = append(speed, r.AvgSpeed)
		throttle = append(throttle, r.AvgThrottle)
		brake = append(brake, r.AvgBrake)
	}

	rep := SegmentReport{
		Segment: best.Segment,
		Laps:    len(laps),

		AvgDT:   *mean(segDT),
		BestDT:  best.SegDT,
		BestLap: best.Lap,

		AvgSpeed:    meanDefined(speed),
		AvgThrottle: meanDefined(throttle),
		AvgBrake:    meanDefined(brake),

		AvgBrakeDT:             *mean(brakeDT),
		AvgExitDT:              meanDefined(exitDT),
		AvgExitThrottleDelayDT: meanDefined(delayDT),
		AvgEntryDT:             meanDefined(entryDT),

		BestBrakeDT:             best.BrakeDT,
		BestExitDT:              best.ExitDT,
		BestExitThrottleDelayDT: best.ExitThrottleDelayDT,
		BestEntryDT:             best.EntryDT,
	}

	rep.TimeLoss = clampLoss(rep.AvgDT - rep.BestDT)
	rep.Loss = rep.TimeLoss
	if rep.BestDT > 0 {
		pct := 100 * rep.TimeLoss / rep.BestDT
		rep.LossPercent = &pct
	}

	rep.BrakeTimeLoss = clampLoss(rep.AvgBrakeDT - rep.BestBrakeDT)
	rep.ExitTimeLoss = lossOf(rep.AvgExitDT, rep.BestExitDT)
	rep.ExitThrottleDelayLoss = lossOf(rep.AvgExitThrottleDelayDT, rep.BestExitThrottleDelayDT)
	rep.EntryTimeLoss = lossOf(rep.AvgEntryDT, rep.BestEntryDT)
	rep.TopCause = topCause(rep)
	return rep
}

// baseline returns the lap with the smallest segment time, lowest lap
// number on ties
func baseline(laps []LapSegmentRecord) LapSegmentRecord {
	best := laps[0]
	for _, r := range laps[1:] {
		if r.SegDT < best.SegDT || (r.SegDT == best.SegDT && r.Lap < best.Lap) {
			best = r
		}
	}
	return best
}

// topCause picks the largest of the braking, exit and late-throttle losses
func topCause(r SegmentReport) string {
	candidates := []struct {
		label string
		value float64
	}{
		{CauseBraking, r.BrakeTimeLoss},
		{CauseCornerExit, r.ExitTimeLoss},
		{CauseLateThrottle, r.ExitThrottleDelayLoss},
	}

	label := CauseNone
	best := math.Inf(-1)
	for _, c := range candidates {
		if c.value > best {
			best = c.value
			label = c.label
		}
	}
	if label == CauseNone || best <= causeEpsilon {
		return CauseNone
	}
	return label
}

// clampLoss floors noise and NaN to 0
func clampLoss(v float64) float64 {
	if !(v > lossEpsilon) {
		return 0
	}
	return v
}

// lossOf returns avg - best clamped, or 0 when either side is undefined
func lossOf(avg, best *float64) float64 {
	if avg == nil || best == nil {
		return 0
	}
	return clampLoss(*avg - *best)
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := floats.Sum(vals) / float64(len(vals))
	return &m
}

// meanDefined averages the non-nil values, skipping undefined ones
func meanDefined(vals []*float64) *float64 {
	defined := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v != nil {
			defined = append(defined, *v)
		}
	}
	return mean(defined)
}
