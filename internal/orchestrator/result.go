package orchestrator

import (
	"sync"
	"time"

	"marketpulse/internal/analysis"
	"marketpulse/internal/llm"
	"marketpulse/internal/status"
	"marketpulse/internal/store"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskSkipped
}

// TaskResult records one task's outcome. Terminal results are final.
type TaskResult struct {
	Name    string        `json:"name"`
	Status  TaskStatus    `json:"status"`
	Error   string        `json:"error,omitempty"`
	Started time.Time     `json:"started,omitzero"`
	Elapsed time.Duration `json:"elapsed"`
}

// RunReport is the best-effort aggregate a run always returns, however
// much of it failed.
type RunReport struct {
	Summary          store.Summary                        `json:"summary"`
	PlatformFindings map[store.Platform][]analysis.Finding `json:"platformFindings"`
	Synthesis        []analysis.Finding                   `json:"synthesis,omitempty"`
	Tasks            map[string]TaskResult                `json:"tasks"`
	Usage            *llm.UsageSummary                    `json:"usage,omitempty"`

	// Store is the sealed record set behind Summary. Omitted from the
	// serialized report; consumers that want raw records read it directly.
	Store *store.UnifiedStore `json:"-"`
}

// tracker owns the task state machine. Transitions out of a terminal
// state are ignored, which keeps concurrent finishers harmless.
type tracker struct {
	mu      sync.Mutex
	results map[string]TaskResult
	writer  status.Writer
}

func newTracker(writer status.Writer) *tracker {
	return &tracker{results: make(map[string]TaskResult), writer: writer}
}

func (t *tracker) register(name string) {
	t.mu.Lock()
	t.results[name] = TaskResult{Name: name, Status: TaskPending}
	t.mu.Unlock()
	t.publish(name, TaskPending, "")
}

func (t *tracker) start(name string) {
	t.mu.Lock()
	r := t.results[name]
	if r.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	r.Name = name
	r.Status = TaskRunning
	r.Started = time.Now()
	t.results[name] = r
	t.mu.Unlock()
	t.publish(name, TaskRunning, "")
}

func (t *tracker) finish(name string, status TaskStatus, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	t.mu.Lock()
	r := t.results[name]
	if r.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	r.Name = name
	r.Status = status
	r.Error = detail
	if !r.Started.IsZero() {
		r.Elapsed = time.Since(r.Started)
	}
	t.results[name] = r
	t.mu.Unlock()
	t.publish(name, status, detail)
}

func (t *tracker) get(name string) TaskResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results[name]
}

func (t *tracker) snapshot() map[string]TaskResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]TaskResult, len(t.results))
	for k, v := range t.results {
		out[k] = v
	}
	return out
}

func (t *tracker) publish(name string, s TaskStatus, detail string) {
	if t.writer == nil {
		return
	}
	t.writer.Publish(status.Event{Task: name, Status: string(s), Detail: detail, Time: time.Now()})
}
