package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lapfinder/internal/analysis"
	"lapfinder/internal/generate"
	"lapfinder/internal/monitoring"
	"lapfinder/internal/service"
	"lapfinder/internal/store"
	"lapfinder/internal/telemetry"
)

func newTestServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(original) })

	var db *store.DB
	if withStore {
		var err error
		db, err = store.Open(store.MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
	}
	svc := service.NewAnalysisService(db, nil, analysis.DefaultOptions())
	return NewServer(ServerConfig{Address: ":0", Service: svc, MaxUploadBytes: 4 << 20})
}

func telemetryCSV(t *testing.T) []byte {
	t.Helper()
	seed := uint64(11)
	samples := generate.Generate(generate.Options{Seed: &seed, Laps: 4, Points: 300})
	var buf bytes.Buffer
	require.NoError(t, telemetry.WriteCSV(&buf, samples))
	return buf.Bytes()
}

// multipartRequest builds a POST /analyze request. A nil file omits the file part.
func multipartRequest(t *testing.T, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", "session.csv")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeReports(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var reports []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reports))
	return reports
}

func TestAnalyze_RanksSegments(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, telemetryCSV(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("X-Run-ID"))

	reports := decodeReports(t, rec)
	require.Len(t, reports, 4)
	for i, r := range reports {
		assert.Equal(t, r["time_loss"], r["loss"])
		if i > 0 {
			assert.LessOrEqual(t, r["time_loss"].(float64), reports[i-1]["time_loss"].(float64))
		}
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, nil, map[string]string{"segments": "4"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing file"}`, rec.Body.String())
}

func TestAnalyze_NotMultipart(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("segments=4"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing file"}`, rec.Body.String())
}

func TestAnalyze_SchemaError(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, []byte("timestamp,lap\n0,1\n"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")
	assert.Contains(t, rec.Body.String(), "track_position")
}

func TestAnalyze_ConfigError(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, telemetryCSV(t), map[string]string{"segments": "0"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "segments")
}

func TestAnalyze_ParseError(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, []byte("timestamp,lap,track_position\n0,\"1,0.5\n"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_SegmentParams(t *testing.T) {
	s := newTestServer(t, false)
	data := telemetryCSV(t)

	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"preferred segments", map[string]string{"segments": "6"}, 6},
		{"legacy n_segments", map[string]string{"n_segments": "3"}, 3},
		{"segments wins over legacy", map[string]string{"segments": "5", "n_segments": "3"}, 5},
		{"unparseable falls back", map[string]string{"segments": "lots"}, 4},
		{"bad thresholds fall back", map[string]string{"brake_threshold": "x", "throttle_threshold": "", "max_dt": "y"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, multipartRequest(t, data, tt.fields))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, decodeReports(t, rec), tt.want)
		})
	}
}

func TestAnalyze_EmptyFile(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, []byte{}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")
}

func TestAnalyze_HeaderOnlyFile(t *testing.T) {
	s := newTestServer(t, false)

	header := strings.Join(telemetry.RequiredColumns, ",") + "\n"
	rec := serve(s, multipartRequest(t, []byte(header), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAnalyze_SaveAndFetchRun(t *testing.T) {
	s := newTestServer(t, true)

	rec := serve(s, multipartRequest(t, telemetryCSV(t), map[string]string{"save": "true"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, id)
	saved := decodeReports(t, rec)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Run     store.Run        `json:"run"`
		Reports []map[string]any `json:"reports"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, id, detail.Run.ID)
	assert.Equal(t, "session.csv", detail.Run.Source)
	assert.Equal(t, saved, detail.Reports)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs/"+id+"/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Time loss by segment")
	assert.Contains(t, rec.Body.String(), analysis.CauseLateThrottle)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/runs/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_SaveWithoutStore(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, multipartRequest(t, telemetryCSV(t), map[string]string{"save": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns_Empty(t *testing.T) {
	s := newTestServer(t, true)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRun_NotFound(t *testing.T) {
	s := newTestServer(t, true)

	for _, path := range []string{"/runs/missing", "/runs/missing/chart"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"run not found"}`, rec.Body.String())
	}
}

func TestHealthAndPreflight(t *testing.T) {
	s := newTestServer(t, false)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, false)

	serve(s, multipartRequest(t, telemetryCSV(t), nil))
	serve(s, multipartRequest(t, nil, nil))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `lapfinder_http_requests_total{code="200",route="analyze"} 1`)
	assert.Contains(t, text, `lapfinder_http_requests_total{code="400",route="analyze"} 1`)
	assert.Contains(t, text, `lapfinder_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, text, `lapfinder_analyses_total{outcome="bad_request"} 1`)
	assert.Contains(t, text, "lapfinder_analysis_samples_count 1")
}

func TestAnalyze_UploadLimit(t *testing.T) {
	s := newTestServer(t, false)
	s.maxUploadBytes = 1024

	rec := serve(s, multipartRequest(t, telemetryCSV(t), nil))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
}

func TestParseOptions_MaxDT(t *testing.T) {
	defaults := analysis.DefaultOptions()
	configured := 0.5
	defaults.MaxDT = &configured

	tests := []struct {
		name   string
		fields url.Values
		want   *float64
	}{
		{"absent keeps configured value", url.Values{}, &configured},
		{"parsed", url.Values{"max_dt": {"0.25"}}, ptrFloat(0.25)},
		{"empty disables filter", url.Values{"max_dt": {""}}, nil},
		{"unparseable disables filter", url.Values{"max_dt": {"soon"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.fields.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			require.NoError(t, r.ParseForm())

			opts := parseOptions(r, defaults)
			assert.Equal(t, tt.want, opts.MaxDT)
			assert.Equal(t, defaults.Segments, opts.Segments)
		})
	}
}

func ptrFloat(v float64) *float64 { return &v }
