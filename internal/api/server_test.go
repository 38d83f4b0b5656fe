package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/pipeline"
)

const guideDoc = `# Field Guide

## Packing List

Bring water. Carry a map! Check the weather.
`

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := embed.NewStats(time.Hour)
	runner := pipeline.NewRunner(embed.Instrument(embed.NewHash(64, "hash-64"), stats), pipeline.Options{Workers: 1}, log)
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{Workers: 1, MaxQueueSize: 4, JobTTL: time.Hour}, runner, log)

	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	cfg := config.Config{APIKey: apiKey, MaxUploadBytes: 1 << 20}
	return NewServer(orch, stats, log, cfg)
}

type part struct {
	field, filename, content string
}

func multipartBody(t *testing.T, fields map[string]string, files []part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/embed", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/embed", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/embed", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmbedStats(t *testing.T) {
	srv := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/embed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Model string         `json:"model"`
		Stats map[string]any `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hash-64", body.Model)
	assert.NotNil(t, body.Stats)
}

func TestOutline(t *testing.T) {
	srv := newTestServer(t, "")
	body, ct := multipartBody(t, nil, []part{{"file", "guide.md", guideDoc}})

	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var o doctree.Outline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, "Field Guide", o.Title)
	require.NotEmpty(t, o.Headings)
	assert.Equal(t, "Packing List", o.Headings[0].Text)
}

func TestOutline_UnsupportedType(t *testing.T) {
	srv := newTestServer(t, "")
	body, ct := multipartBody(t, nil, []part{{"file", "data.exe", "MZ"}})

	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_MissingFields(t *testing.T) {
	srv := newTestServer(t, "")
	body, ct := multipartBody(t, map[string]string{"persona": "Hiker"}, []part{{"files", "guide.md", guideDoc}})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	srv := newTestServer(t, "")
	body, ct := multipartBody(t,
		map[string]string{"persona": "Hiker", "job_to_be_done": "Prepare for a day hike"},
		[]part{{"files", "guide.md", guideDoc}},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)
	assert.Equal(t, "/api/analyze/"+accepted.JobID, accepted.PollURL)

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, accepted.PollURL, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		snap = pipeline.JobSnapshot{}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, pipeline.StatusCompleted, snap.Status, snap.Progress.Errors)
	require.NotNil(t, snap.Result)
	assert.Equal(t, []string{"guide.md"}, snap.Result.Metadata.Documents)
	require.Len(t, snap.Result.ExtractedSections, 1)
	assert.Equal(t, "Packing List", snap.Result.ExtractedSections[0].SectionTitle)
	assert.Equal(t, 1, snap.Result.ExtractedSections[0].ImportanceRank)
}

func TestAnalyzeStatus_NotFound(t *testing.T) {
	srv := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\docs\notes.md`:     "notes.md",
		"":                     "unnamed",
		"a..b.md":              "a_b.md",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}

func TestAuth_APIKeyHeader(t *testing.T) {
	srv := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/stats/embed", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFormats(t *testing.T) {
	srv := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/formats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Extensions []string `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Extensions, ".pdf")
	assert.Contains(t, body.Extensions, ".md")
}
