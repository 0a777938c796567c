package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"lapfinder/internal/analysis"
	"lapfinder/internal/remote"
	"lapfinder/internal/store"
	"lapfinder/internal/telemetry"
)

// ErrNoStore is returned when persistence is requested without a database
var ErrNoStore = errors.New("run history is not configured")

// Fetcher downloads a telemetry export from a URL
type Fetcher interface {
	FetchTelemetry(ctx context.Context, url string) (telemetry.Table, error)
}

// AnalysisService runs the bottleneck pipeline and keeps run history
type AnalysisService struct {
	store    *store.DB
	fetcher  Fetcher
	defaults analysis.Options
	now      func() time.Time
}

// NewAnalysisService creates a new analysis service. db and fetcher may be
// nil when history or URL sources are not needed.
func NewAnalysisService(db *store.DB, fetcher Fetcher, defaults analysis.Options) *AnalysisService {
	return &AnalysisService{
		store:    db,
		fetcher:  fetcher,
		defaults: defaults,
		now:      time.Now,
	}
}

// Defaults returns the configured analysis parameters
func (s *AnalysisService) Defaults() analysis.Options {
	return s.defaults
}

// RunResult is one analysis with its metadata
type RunResult struct {
	Run      store.Run                `json:"run"`
	Reports  []analysis.SegmentReport `json:"reports"`
	Laps     []analysis.LapTime       `json:"laps,omitempty"`
	Saved    bool                     `json:"saved"`
	Duration time.Duration            `json:"-"`
}

// AnalyzeTable analyzes an already parsed table. When save is set the
// run and its reports are written to history.
func (s *AnalysisService) AnalyzeTable(source string, t telemetry.Table, opts analysis.Options, save bool) (*RunResult, error) {
	if save && s.store == nil {
		return nil, ErrNoStore
	}

	start := time.Now()
	res, err := analysis.AnalyzeDetailed(t, opts)
	if err != nil {
		return nil, err
	}

	run := store.Run{
		ID:                uuid.NewString(),
		CreatedAt:         s.now().UTC(),
		Source:            source,
		Segments:          opts.Segments,
		MaxDT:             opts.MaxDT,
		BrakeThreshold:    opts.BrakeThreshold,
		ThrottleThreshold: opts.ThrottleThreshold,
		SampleCount:       res.Samples,
		LapCount:          len(res.Laps),
	}
	if best, ok := analysis.BestLap(res.Laps); ok {
		lap, lapTime := best.Lap, best.Time
		run.BestLap = &lap
		run.BestLapTime = &lapTime
	}

	result := &RunResult{
		Run:      run,
		Reports:  res.Reports,
		Laps:     res.Laps,
		Duration: time.Since(start),
	}

	if save {
		if err := s.store.SaveRun(&result.Run, result.Reports); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		result.Saved = true
	}

	return result, nil
}

// AnalyzeReader reads a CSV export from r and analyzes it
func (s *AnalysisService) AnalyzeReader(source string, r io.Reader, opts analysis.Options, save bool) (*RunResult, error) {
	t, err := telemetry.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeTable(source, t, opts, save)
}

// AnalyzeSource analyzes a local CSV file or an http(s) URL
func (s *AnalysisService) AnalyzeSource(ctx context.Context, source string, opts analysis.Options, save bool) (*RunResult, error) {
	if remote.IsURL(source) {
		if s.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", source)
		}
		t, err := s.fetcher.FetchTelemetry(ctx, source)
		if err != nil {
			return nil, err
		}
		return s.AnalyzeTable(source, t, opts, save)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry file: %w", err)
	}
	defer f.Close()

	return s.AnalyzeReader(filepath.Base(source), f, opts, save)
}

// History returns recent runs, newest first
func (s *AnalysisService) History(limit int) ([]store.Run, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.ListRuns(limit)
}

// RunCount returns the number of stored runs
func (s *AnalysisService) RunCount() (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	return s.store.CountRuns()
}

// RunDetail loads a stored run with its ranked reports
func (s *AnalysisService) RunDetail(id string) (*RunResult, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	reports, err := s.store.GetReports(id)
	if err != nil {
		return nil, fmt.Errorf("loading reports: %w", err)
	}
	return &RunResult{Run: *run, Reports: reports, Saved: true}, nil
}

// LatestRun returns the most recent stored run, or store.ErrRunNotFound
func (s *AnalysisService) LatestRun() (*RunResult, error) {
	runs, err := s.History(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, store.ErrRunNotFound
	}
	return s.RunDetail(runs[0].ID)
}

// DeleteRun removes a stored run
func (s *AnalysisService) DeleteRun(id string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeleteRun(id)
}
