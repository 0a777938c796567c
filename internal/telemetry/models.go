package telemetry

// RequiredColumns lists the columns every telemetry source must carry, in
// the order they are reported when missing.
var RequiredColumns = []string{
	"timestamp",
	"lap",
	"speed",
	"throttle",
	"brake",
	"steering",
	"track_position",
}

// Table is a raw tabular telemetry source: a header row plus string cells,
// exactly as read from a CSV export.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Rows)
}

// Sample represents a single cleaned telemetry reading.
// Optional signals are nil when the source value was missing or not numeric.
type Sample struct {
	Timestamp     float64  // seconds
	Lap           int      // lap index
	Speed         *float64 // unconstrained
	Throttle      *float64 // clipped to [0,1]
	Brake         *float64 // clipped to [0,1]
	Steering      *float64 // unconstrained
	TrackPosition float64  // clipped to [0,1], 0 = start/finish line
}
