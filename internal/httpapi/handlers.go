package httpapi

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"lapfinder/internal/analysis"
	"lapfinder/internal/httputil"
	"lapfinder/internal/service"
	"lapfinder/internal/store"
	"lapfinder/internal/telemetry"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 32 << 20

// handleAnalyze analyses an uploaded CSV and returns the ranked reports.
// Form fields:
//
//	file (required), segments or n_segments, max_dt,
//	brake_threshold, throttle_threshold, save
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.observeFailure("too_large")
			httputil.RequestTooLarge(w, "Upload too large")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			s.metrics.observeFailure("bad_request")
			httputil.BadRequest(w, "Invalid multipart form: "+err.Error())
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.observeFailure("bad_request")
		httputil.BadRequest(w, "Missing file")
		return
	}
	defer file.Close()

	opts := parseOptions(r, s.service.Defaults())
	save := parseBool(r.FormValue("save"))

	result, err := s.service.AnalyzeReader(header.Filename, file, opts, save)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	s.metrics.observeAnalysis(result.Run.SampleCount, result.Reports)
	logf("analyze %q: %d samples, %d laps, %d segments in %s",
		header.Filename, result.Run.SampleCount, result.Run.LapCount, len(result.Reports), result.Duration)

	if result.Saved {
		w.Header().Set("X-Run-ID", result.Run.ID)
	}
	httputil.WriteJSONOK(w, result.Reports)
}

// writeAnalysisError maps input errors to 400 and everything else to 500
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var schemaErr *telemetry.SchemaError
	var cfgErr *analysis.ConfigError
	var parseErr *csv.ParseError

	switch {
	case errors.As(err, &schemaErr):
		s.metrics.observeFailure("schema_error")
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &cfgErr):
		s.metrics.observeFailure("config_error")
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &parseErr):
		s.metrics.observeFailure("parse_error")
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrNoStore):
		s.metrics.observeFailure("no_store")
		httputil.BadRequest(w, err.Error())
	default:
		s.metrics.observeFailure("error")
		logf("analyze failed: %v", err)
		httputil.InternalServerError(w, "analysis failed")
	}
}

// parseOptions reads analysis parameters from the form. Absent or
// unparseable values fall back to defaults, except max_dt which falls
// back to no filter.
func parseOptions(r *http.Request, defaults analysis.Options) analysis.Options {
	opts := defaults

	raw, ok := formValue(r, "segments")
	if !ok {
		raw, ok = formValue(r, "n_segments")
	}
	if ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			opts.Segments = n
		}
	}

	if raw, ok := formValue(r, "brake_threshold"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			opts.BrakeThreshold = v
		}
	}
	if raw, ok := formValue(r, "throttle_threshold"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			opts.ThrottleThreshold = v
		}
	}
	// a sent max_dt that is empty or unparseable disables the filter
	if raw, ok := formValue(r, "max_dt"); ok {
		opts.MaxDT = nil
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			opts.MaxDT = &v
		}
	}

	return opts
}

// formValue reports whether key was sent at all, even if empty
func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	if vs, ok := r.Form[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

// handleRuns lists stored runs, newest first.
// Query params:
//
//	limit (optional, default 20)
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.service.History(limit)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	total, err := s.service.RunCount()
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	if runs == nil {
		runs = []store.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRun returns a stored run with its ranked reports
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RunDetail(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, result)
}

// handleDeleteRun removes a stored run
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRun(r.PathValue("id")); err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		httputil.NotFound(w, "run not found")
	case errors.Is(err, service.ErrNoStore):
		httputil.NotFound(w, err.Error())
	default:
		logf("run lookup failed: %v", err)
		httputil.InternalServerError(w, "lookup failed")
	}
}
