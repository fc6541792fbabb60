package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/jobs"
)

type fakeService struct {
	requests []jobs.Request
	runs     map[string]jobs.Run
}

func (f *fakeService) Enqueue(req jobs.Request) string {
	f.requests = append(f.requests, req)
	return "run-42"
}

func (f *fakeService) Status(runID string) (jobs.Run, error) {
	run, ok := f.runs[runID]
	if !ok {
		return jobs.Run{}, jobs.ErrRunNotFound
	}
	return run, nil
}

func newTestServer() (*Server, *fakeService) {
	svc := &fakeService{runs: map[string]jobs.Run{}}
	return New(svc, "127.0.0.1", 0, "/var/lib/vulminator/runs", hclog.NewNullLogger()), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]interface{}{"status": "ok", "workspace": "/var/lib/vulminator/runs"}, decode(t, rec))
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantDetail string
		wantReq    *jobs.Request
	}{
		{
			name:     "defaults",
			body:     `{"repo_url":"https://github.com/acme/shop"}`,
			wantCode: http.StatusOK,
			wantReq:  &jobs.Request{RepoURL: "https://github.com/acme/shop", Preset: "fast", RunAIReport: true},
		},
		{
			name:     "explicit fields",
			body:     `{"repo_url":"https://github.com/acme/shop","github_token":"ghp_x","preset":"exhaustive","run_ai_report":false,"extra":1}`,
			wantCode: http.StatusOK,
			wantReq:  &jobs.Request{RepoURL: "https://github.com/acme/shop", GithubToken: "ghp_x", Preset: "exhaustive", RunAIReport: false},
		},
		{name: "missing url", body: `{}`, wantCode: http.StatusUnprocessableEntity, wantDetail: "repo_url is required"},
		{name: "plain http", body: `{"repo_url":"http://github.com/acme/shop"}`, wantCode: http.StatusUnprocessableEntity, wantDetail: "repo_url must be an HTTPS URL"},
		{name: "unknown preset", body: `{"repo_url":"https://github.com/acme/shop","preset":"turbo"}`, wantCode: http.StatusUnprocessableEntity, wantDetail: "unknown preset"},
		{name: "malformed json", body: `{"repo_url":`, wantCode: http.StatusBadRequest, wantDetail: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer()

			rec := do(t, s.Handler(), http.MethodPost, "/analyze", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode(t, rec)
			if tt.wantReq == nil {
				assert.Empty(t, svc.requests)
				assert.Contains(t, body["detail"], tt.wantDetail)
				return
			}
			require.Len(t, svc.requests, 1)
			assert.Equal(t, *tt.wantReq, svc.requests[0])
			assert.Equal(t, map[string]interface{}{"run_id": "run-42", "status": "queued"}, body)
		})
	}
}

func TestRunStatus(t *testing.T) {
	s, svc := newTestServer()
	svc.runs["run-1"] = jobs.Run{
		ID:       "run-1",
		Status:   jobs.StatusCompleted,
		Message:  "Semgrep finished 1 finding(s); Skipped PR (no GitHub token provided)",
		Findings: []findings.Finding{findings.NewForFile("js.sqli", findings.SeverityHigh, "src/app.js", "Tainted SQL")},
		Request:  jobs.Request{GithubToken: "ghp_secret"},
	}

	rec := do(t, s.Handler(), http.MethodGet, "/runs/run-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ghp_secret")
	body := decode(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "completed", body["status"])
	assert.NotContains(t, body, "pr_url")
	assert.Equal(t, []interface{}{map[string]interface{}{
		"title":     "js.sqli",
		"severity":  "high",
		"file_path": "src/app.js",
		"summary":   "Tainted SQL",
	}}, body["findings"])
}

func TestRunStatusNotFound(t *testing.T) {
	s, _ := newTestServer()

	rec := do(t, s.Handler(), http.MethodGet, "/runs/unknown", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"detail": "Run not found"}, decode(t, rec))
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	get := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, "*", get.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer()

	rec := do(t, s.Handler(), http.MethodGet, "/analyze", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
