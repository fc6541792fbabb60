package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vulminator-io/vulminator/internal/jobs"
)

// Client talks to a running analysis API.
type Client struct {
	httpc *resty.Client
}

// NewClient returns a Client for the API at baseURL using httpc for transport.
func NewClient(httpc *resty.Client, baseURL string) *Client {
	httpc.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	httpc.SetHeader("Accept", "application/json")
	return &Client{httpc: httpc}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Submit queues req and returns the run id.
func (c *Client) Submit(ctx context.Context, req jobs.Request) (string, error) {
	runAIReport := req.RunAIReport
	var r analyzeResponse
	var e errorResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(analyzeRequest{
			RepoURL:     req.RepoURL,
			GithubToken: req.GithubToken,
			Preset:      req.Preset,
			RunAIReport: &runAIReport,
		}).
		SetResult(&r).
		SetError(&e).
		Post("/analyze")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%d on submitting run: %s", resp.StatusCode(), e.Detail)
	}
	return r.RunID, nil
}

// Status returns the current snapshot of a run.
func (c *Client) Status(ctx context.Context, runID string) (jobs.Run, error) {
	var run jobs.Run
	var e errorResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetPathParam("run_id", runID).
		SetResult(&run).
		SetError(&e).
		Get("/runs/{run_id}")
	if err != nil {
		return jobs.Run{}, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return run, nil
	case http.StatusNotFound:
		return jobs.Run{}, fmt.Errorf("%s: %w", runID, jobs.ErrRunNotFound)
	default:
		return jobs.Run{}, fmt.Errorf("%d on getting run '%s': %s", resp.StatusCode(), runID, e.Detail)
	}
}

// Wait polls a run every interval until it reaches a terminal status or ctx is done.
func (c *Client) Wait(ctx context.Context, runID string, interval time.Duration) (jobs.Run, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := c.Status(ctx, runID)
		if err != nil {
			return jobs.Run{}, err
		}
		if run.Status.Terminal() {
			return run, nil
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}
