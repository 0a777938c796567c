package store

import "time"

// Run represents one persisted analysis invocation
type Run struct {
	ID                string    `db:"id" json:"id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	Source            string    `db:"source" json:"source"` // file name or URL
	Segments          int       `db:"n_segments" json:"n_segments"`
	MaxDT             *float64  `db:"max_dt" json:"max_dt"` // nullable
	BrakeThreshold    float64   `db:"brake_threshold" json:"brake_threshold"`
	ThrottleThreshold float64   `db:"throttle_threshold" json:"throttle_threshold"`
	SampleCount       int       `db:"sample_count" json:"sample_count"`
	LapCount          int       `db:"lap_count" json:"lap_count"`
	BestLap           *int      `db:"best_lap" json:"best_lap"`           // nullable
	BestLapTime       *float64  `db:"best_lap_time" json:"best_lap_time"` // seconds, nullable
}
