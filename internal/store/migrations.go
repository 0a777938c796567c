package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// One row per analysis invocation
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			source TEXT NOT NULL,
			n_segments INTEGER NOT NULL,
			max_dt REAL,
			brake_threshold REAL NOT NULL,
			throttle_threshold REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			lap_count INTEGER NOT NULL,
			best_lap INTEGER,
			best_lap_time REAL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,

		// Ranked segment reports (rank 1 = largest time loss)
		`CREATE TABLE IF NOT EXISTS segment_reports (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			segment TEXT NOT NULL,
			laps INTEGER NOT NULL,
			avg_dt REAL NOT NULL,
			best_dt REAL NOT NULL,
			best_lap INTEGER NOT NULL,
			time_loss REAL NOT NULL,
			loss_percent REAL,
			brake_time_loss REAL NOT NULL,
			exit_time_loss REAL NOT NULL,
			exit_throttle_delay_loss REAL NOT NULL,
			entry_time_loss REAL NOT NULL,
			top_cause TEXT NOT NULL,
			avg_speed REAL,
			avg_throttle REAL,
			avg_brake REAL,
			avg_brake_dt REAL NOT NULL,
			avg_exit_dt REAL,
			avg_exit_throttle_delay_dt REAL,
			avg_entry_dt REAL,
			best_brake_dt REAL NOT NULL,
			best_exit_dt REAL,
			best_exit_throttle_delay_dt REAL,
			best_entry_dt REAL,
			PRIMARY KEY (run_id, rank),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_segment_reports_run ON segment_reports(run_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
