package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReportColumns is the full output schema, in export order
var ReportColumns = []string{
	"segment",
	"avg_dt",
	"best_dt",
	"time_loss",
	"loss_percent",
	"brake_time_loss",
	"exit_time_loss",
	"exit_throttle_delay_loss",
	"entry_time_loss",
	"top_cause",
	"avg_speed",
	"avg_throttle",
	"avg_brake",
	"avg_brake_dt",
	"avg_exit_dt",
	"avg_exit_throttle_delay_dt",
	"avg_entry_dt",
	"best_brake_dt",
	"best_exit_dt",
	"best_exit_throttle_delay_dt",
	"best_entry_dt",
	"best_lap",
	"laps",
	"loss",
}

// Record returns the report's values aligned with ReportColumns.
// Undefined values are empty strings.
func (r SegmentReport) Record() []string {
	return []string{
		r.Segment,
		formatFloat(r.AvgDT),
		formatFloat(r.BestDT),
		formatFloat(r.TimeLoss),
		formatOptional(r.LossPercent),
		formatFloat(r.BrakeTimeLoss),
		formatFloat(r.ExitTimeLoss),
		formatFloat(r.ExitThrottleDelayLoss),
		formatFloat(r.EntryTimeLoss),
		r.TopCause,
		formatOptional(r.AvgSpeed),
		formatOptional(r.AvgThrottle),
		formatOptional(r.AvgBrake),
		formatFloat(r.AvgBrakeDT),
		formatOptional(r.AvgExitDT),
		formatOptional(r.AvgExitThrottleDelayDT),
		formatOptional(r.AvgEntryDT),
		formatFloat(r.BestBrakeDT),
		formatOptional(r.BestExitDT),
		formatOptional(r.BestExitThrottleDelayDT),
		formatOptional(r.BestEntryDT),
		strconv.Itoa(r.BestLap),
		strconv.Itoa(r.Laps),
		formatFloat(r.Loss),
	}
}

// WriteReportsCSV writes the header and one row per report. An empty
// result still produces the full header.
func WriteReportsCSV(w io.Writer, reports []SegmentReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("writing %s: %w", r.Segment, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
