package service

import (
	"fmt"
	"math"
)

// FormatLapTime formats seconds as "M:SS.mmm"
func FormatLapTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "-"
	}
	ms := int(math.Round(seconds * 1000))
	mins := ms / (SecondsPerMinute * 1000)
	rest := ms % (SecondsPerMinute * 1000)
	return fmt.Sprintf("%d:%02d.%03d", mins, rest/1000, rest%1000)
}

// FormatLoss formats a time loss as "+0.123s"
func FormatLoss(seconds float64) string {
	return fmt.Sprintf("+%.3fs", seconds)
}

// FormatOptional formats a nullable value with the given verb, "-" when nil
func FormatOptional(format string, v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
