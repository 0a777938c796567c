package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapfinder/internal/analysis"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(MemoryPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func ptr(v float64) *float64 { return &v }

func testRun(createdAt time.Time) *Run {
	lap := 2
	return &Run{
		ID:                uuid.NewString(),
		CreatedAt:         createdAt,
		Source:            "session.csv",
		Segments:          4,
		MaxDT:             ptr(0.5),
		BrakeThreshold:    0.15,
		ThrottleThreshold: 0.25,
		SampleCount:       1200,
		LapCount:          3,
		BestLap:           &lap,
		BestLapTime:       ptr(92.4),
	}
}

func testReports() []analysis.SegmentReport {
	return []analysis.SegmentReport{
		{
			Segment: "S3", Laps: 3, AvgDT: 24.5, BestDT: 23.5, BestLap: 2,
			TimeLoss: 1.0, Loss: 1.0, LossPercent: ptr(4.2553),
			BrakeTimeLoss: 0.3, ExitTimeLoss: 0.5, ExitThrottleDelayLoss: 0.2, EntryTimeLoss: 0.4,
			TopCause: analysis.CauseCornerExit,
			AvgSpeed: ptr(41.2), AvgThrottle: ptr(0.6), AvgBrake: ptr(0.1),
			AvgBrakeDT: 2.1, AvgExitDT: ptr(6.0), AvgExitThrottleDelayDT: ptr(1.2), AvgEntryDT: ptr(8.0),
			BestBrakeDT: 1.8, BestExitDT: ptr(5.5), BestExitThrottleDelayDT: ptr(1.0), BestEntryDT: ptr(7.6),
		},
		{
			Segment: "S1", Laps: 3, AvgDT: 22.0, BestDT: 22.0, BestLap: 1,
			TimeLoss: 0, Loss: 0, LossPercent: ptr(0),
			TopCause: analysis.CauseNone,
		},
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"runs", "segment_reports"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	run := testRun(created)
	reports := testReports()

	require.NoError(t, db.SaveRun(run, reports))

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}

	gotReports, err := db.GetReports(run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(reports, gotReports); diff != "" {
		t.Errorf("GetReports mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRun_NullableFields(t *testing.T) {
	db := setupTestDB(t)
	run := testRun(time.Now().UTC())
	run.MaxDT = nil
	run.BestLap = nil
	run.BestLapTime = nil

	require.NoError(t, db.SaveRun(run, nil))

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MaxDT)
	assert.Nil(t, got.BestLap)
	assert.Nil(t, got.BestLapTime)

	reports, err := db.GetReports(run.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NotNil(t, reports)
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	run := testRun(time.Now().UTC())

	require.NoError(t, db.SaveRun(run, testReports()))
	assert.Error(t, db.SaveRun(run, testReports()))

	// The failed insert must not leave partial reports behind
	reports, err := db.GetReports(run.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		run := testRun(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, db.SaveRun(run, nil))
		ids = append(ids, run.ID)
	}

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	limited, err := db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	count, err := db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDeleteRun_CascadesReports(t *testing.T) {
	db := setupTestDB(t)
	run := testRun(time.Now().UTC())
	require.NoError(t, db.SaveRun(run, testReports()))

	require.NoError(t, db.DeleteRun(run.ID))

	_, err := db.GetRun(run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM segment_reports WHERE run_id = ?", run.ID).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, db.DeleteRun(run.ID), ErrRunNotFound)
}
