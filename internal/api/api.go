// Package api serves the analysis HTTP API: health, run submission and run status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/github"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/internal/scanner"
)

const maxBodyBytes = 1 << 20

// Service is the run scheduler behind the API.
type Service interface {
	Enqueue(req jobs.Request) string
	Status(runID string) (jobs.Run, error)
}

// Server is the HTTP API server.
type Server struct {
	service   Service
	workspace string
	logger    hclog.Logger
	mux       *http.ServeMux
	server    *http.Server
}

// New creates a Server listening on host:port.
func New(service Service, host string, port int, workspace string, logger hclog.Logger) *Server {
	s := &Server{
		service:   service,
		workspace: workspace,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /runs/{run_id}", s.handleRun)
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(cors(s.mux))
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe serves until Shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("API server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type analyzeRequest struct {
	RepoURL     string `json:"repo_url"`
	GithubToken string `json:"github_token"`
	Preset      string `json:"preset"`
	RunAIReport *bool  `json:"run_ai_report"`
}

type analyzeResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "workspace": s.workspace})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := validateAnalyzeRequest(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID := s.service.Enqueue(req)
	writeJSON(w, http.StatusOK, analyzeResponse{RunID: runID, Status: string(jobs.StatusQueued)})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Status(r.PathValue("run_id"))
	if errors.Is(err, jobs.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func validateAnalyzeRequest(body analyzeRequest) (jobs.Request, error) {
	if err := github.ValidateRepoURL(body.RepoURL); err != nil {
		return jobs.Request{}, err
	}

	preset, err := scanner.ParsePreset(body.Preset)
	if err != nil {
		return jobs.Request{}, err
	}

	runAIReport := true
	if body.RunAIReport != nil {
		runAIReport = *body.RunAIReport
	}

	return jobs.Request{
		RepoURL:     body.RepoURL,
		GithubToken: body.GithubToken,
		Preset:      string(preset),
		RunAIReport: runAIReport,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
