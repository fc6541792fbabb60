package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vulminator-io/vulminator/internal/findings"
)

// ErrRunNotFound is returned for unknown run identifiers.
var ErrRunNotFound = errors.New("run not found")

// Status is the lifecycle state of a run: queued, running, then completed or failed.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is one analysis request.
type Request struct {
	RepoURL     string `json:"repo_url"`
	GithubToken string `json:"github_token,omitempty"`
	Preset      string `json:"preset"`
	RunAIReport bool   `json:"run_ai_report"`
}

// Run is the status document of one analysis. The request is kept private to the registry
// so that tokens never leave through the status API.
type Run struct {
	ID        string             `json:"run_id"`
	Status    Status             `json:"status"`
	Message   string             `json:"message,omitempty"`
	PRURL     string             `json:"pr_url,omitempty"`
	Findings  []findings.Finding `json:"findings,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	Request Request `json:"-"`
}

// Patch lists the fields an Update overwrites. Nil fields are left untouched.
type Patch struct {
	Status   *Status
	Message  *string
	PRURL    *string
	Findings []findings.Finding
}

// Registry keeps every run of the process in memory behind a single lock.
// Runs are never removed.
type Registry struct {
	mu    sync.Mutex
	runs  map[string]*Run
	newID func() string
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		runs:  make(map[string]*Run),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Create registers a queued run for req and returns its snapshot.
func (r *Registry) Create(req Request) Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	run := &Run{
		ID:        r.newID(),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
	}
	r.runs[run.ID] = run
	return run.snapshot()
}

// Get returns a snapshot of the run or ErrRunNotFound.
func (r *Registry) Get(id string) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run.snapshot(), nil
}

// Update applies p to the run. Unknown ids are ignored.
func (r *Registry) Update(id string, p Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}
	if p.Status != nil {
		run.Status = *p.Status
	}
	if p.Message != nil {
		run.Message = *p.Message
	}
	if p.PRURL != nil {
		run.PRURL = *p.PRURL
	}
	if p.Findings != nil {
		run.Findings = append([]findings.Finding(nil), p.Findings...)
	}
	run.UpdatedAt = r.now().UTC()
}

// Len returns the number of registered runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (run *Run) snapshot() Run {
	c := *run
	if run.Findings != nil {
		c.Findings = append([]findings.Finding(nil), run.Findings...)
	}
	return c
}
