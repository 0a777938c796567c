package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lapfinder/internal/analysis"
)

// timeLayout is fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, created_at, source, n_segments, max_dt, brake_threshold,
	throttle_threshold, sample_count, lap_count, best_lap, best_lap_time`

const reportColumns = `segment, laps, avg_dt, best_dt, best_lap, time_loss, loss_percent,
	brake_time_loss, exit_time_loss, exit_throttle_delay_loss, entry_time_loss, top_cause,
	avg_speed, avg_throttle, avg_brake,
	avg_brake_dt, avg_exit_dt, avg_exit_throttle_delay_dt, avg_entry_dt,
	best_brake_dt, best_exit_dt, best_exit_throttle_delay_dt, best_entry_dt`

// SaveRun stores a run together with its ranked reports.
// Reports are stored in the given order; rank 1 is the first report.
func (db *DB) SaveRun(run *Run, reports []analysis.SegmentReport) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Source, run.Segments, run.MaxDT,
		run.BrakeThreshold, run.ThrottleThreshold, run.SampleCount, run.LapCount,
		run.BestLap, run.BestLapTime,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO segment_reports (run_id, rank, ` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range reports {
		_, err := stmt.Exec(
			run.ID, i+1, r.Segment, r.Laps, r.AvgDT, r.BestDT, r.BestLap, r.TimeLoss, r.LossPercent,
			r.BrakeTimeLoss, r.ExitTimeLoss, r.ExitThrottleDelayLoss, r.EntryTimeLoss, r.TopCause,
			r.AvgSpeed, r.AvgThrottle, r.AvgBrake,
			r.AvgBrakeDT, r.AvgExitDT, r.AvgExitThrottleDelayDT, r.AvgEntryDT,
			r.BestBrakeDT, r.BestExitDT, r.BestExitThrottleDelayDT, r.BestEntryDT,
		)
		if err != nil {
			return fmt.Errorf("inserting report %s: %w", r.Segment, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetReports returns a run's reports ordered by rank
func (db *DB) GetReports(runID string) ([]analysis.SegmentReport, error) {
	rows, err := db.Query(`SELECT `+reportColumns+` FROM segment_reports WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []analysis.SegmentReport{}
	for rows.Next() {
		var r analysis.SegmentReport
		err := rows.Scan(
			&r.Segment, &r.Laps, &r.AvgDT, &r.BestDT, &r.BestLap, &r.TimeLoss, &r.LossPercent,
			&r.BrakeTimeLoss, &r.ExitTimeLoss, &r.ExitThrottleDelayLoss, &r.EntryTimeLoss, &r.TopCause,
			&r.AvgSpeed, &r.AvgThrottle, &r.AvgBrake,
			&r.AvgBrakeDT, &r.AvgExitDT, &r.AvgExitThrottleDelayDT, &r.AvgEntryDT,
			&r.BestBrakeDT, &r.BestExitDT, &r.BestExitThrottleDelayDT, &r.BestEntryDT,
		)
		if err != nil {
			return nil, err
		}
		r.Loss = r.TimeLoss
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteRun removes a run and its reports
func (db *DB) DeleteRun(id string) error {
	result, err := db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CountRuns returns the number of stored runs
func (db *DB) CountRuns() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	err := row.Scan(
		&run.ID, &createdAt, &run.Source, &run.Segments, &run.MaxDT, &run.BrakeThreshold,
		&run.ThrottleThreshold, &run.SampleCount, &run.LapCount, &run.BestLap, &run.BestLapTime,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return &run, nil
}
