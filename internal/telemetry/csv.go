package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV reads a telemetry export with a header row.
// An empty input yields an empty Table with no columns.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[i] = strings.TrimSpace(h)
	}

	t := Table{Columns: cols}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("reading csv row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// SamplesTable converts cleaned samples back into a Table using the
// required column layout. Missing optional signals become empty cells.
func SamplesTable(samples []Sample) Table {
	t := Table{
		Columns: append([]string(nil), RequiredColumns...),
		Rows:    make([][]string, 0, len(samples)),
	}
	for _, s := range samples {
		t.Rows = append(t.Rows, []string{
			formatFloat(s.Timestamp),
			strconv.Itoa(s.Lap),
			formatOptional(s.Speed),
			formatOptional(s.Throttle),
			formatOptional(s.Brake),
			formatOptional(s.Steering),
			formatFloat(s.TrackPosition),
		})
	}
	return t
}

// WriteCSV writes samples as a CSV export readable by ReadCSV
func WriteCSV(w io.Writer, samples []Sample) error {
	t := SamplesTable(samples)
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing csv rows: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
