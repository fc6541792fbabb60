package api

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/jobs"
)

// pollingService reports a run as running for the first polls and completed afterwards.
type pollingService struct {
	mu       sync.Mutex
	requests []jobs.Request
	polls    int
}

func (p *pollingService) Enqueue(req jobs.Request) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return "run-7"
}

func (p *pollingService) Status(runID string) (jobs.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if runID != "run-7" {
		return jobs.Run{}, jobs.ErrRunNotFound
	}
	p.polls++
	if p.polls < 3 {
		return jobs.Run{ID: runID, Status: jobs.StatusRunning}, nil
	}
	return jobs.Run{ID: runID, Status: jobs.StatusCompleted, PRURL: "https://github.com/acme/shop/pull/9"}, nil
}

func newTestClient(t *testing.T) (*Client, *pollingService) {
	t.Helper()
	svc := &pollingService{}
	srv := httptest.NewServer(New(svc, "127.0.0.1", 0, t.TempDir(), hclog.NewNullLogger()).Handler())
	t.Cleanup(srv.Close)
	return NewClient(resty.New(), srv.URL+"/"), svc
}

func TestClientSubmit(t *testing.T) {
	c, svc := newTestClient(t)

	runID, err := c.Submit(t.Context(), jobs.Request{
		RepoURL:     "https://github.com/acme/shop",
		GithubToken: "ghp_test",
		Preset:      "balanced",
	})

	require.NoError(t, err)
	assert.Equal(t, "run-7", runID)
	assert.Equal(t, []jobs.Request{{
		RepoURL:     "https://github.com/acme/shop",
		GithubToken: "ghp_test",
		Preset:      "balanced",
		RunAIReport: false,
	}}, svc.requests)
}

func TestClientSubmitRejected(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Submit(t.Context(), jobs.Request{RepoURL: "http://github.com/acme/shop"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422 on submitting run")
	assert.Contains(t, err.Error(), "repo_url must be an HTTPS URL")
}

func TestClientStatusNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Status(t.Context(), "missing")

	assert.ErrorIs(t, err, jobs.ErrRunNotFound)
}

func TestClientWait(t *testing.T) {
	c, svc := newTestClient(t)

	run, err := c.Wait(t.Context(), "run-7", time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, run.Status)
	assert.Equal(t, "https://github.com/acme/shop/pull/9", run.PRURL)
	assert.Equal(t, 3, svc.polls)
}
