// Package state tracks the lifecycle of one audit run: current
// phase, action log, and accumulated errors. The snapshot is embedded
// verbatim in the report.
package state

import (
	"sync"
	"time"
)

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Action is one logged step with its phase context.
type Action struct {
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	Iteration int    `json:"iteration"`
	Timestamp string `json:"timestamp"`
}

// Snapshot is the JSON-friendly view of a run's state.
type Snapshot struct {
	RunName     string   `json:"run_name"`
	Phase       string   `json:"phase"`
	Iteration   int      `json:"iteration"`
	Completed   bool     `json:"completed"`
	Errors      []string `json:"errors"`
	Actions     []Action `json:"actions"`
	StartTime   string   `json:"start_time"`
	LastUpdated string   `json:"last_updated"`
}

// RunState is a concurrency-safe run tracker. Producers running in
// parallel log actions and errors through it.
type RunState struct {
	mu sync.Mutex

	runName     string
	phase       string
	iteration   int
	completed   bool
	errors      []string
	actions     []Action
	startTime   string
	lastUpdated string
}

func NewRunState(runName string) *RunState {
	now := utcNow()
	return &RunState{
		runName:     runName,
		phase:       "init",
		startTime:   now,
		lastUpdated: now,
	}
}

// SetPhase moves the run into a new phase and bumps the iteration.
func (s *RunState) SetPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.iteration++
	s.lastUpdated = utcNow()
}

// AddAction records a step under the current iteration.
func (s *RunState) AddAction(name, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := utcNow()
	s.actions = append(s.actions, Action{
		Name:      name,
		Detail:    detail,
		Iteration: s.iteration,
		Timestamp: now,
	})
	s.lastUpdated = now
}

// AddError records a failure without stopping the run.
func (s *RunState) AddError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	s.lastUpdated = utcNow()
}

// SetCompleted marks the run finished.
func (s *RunState) SetCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.phase = "done"
	s.lastUpdated = utcNow()
}

// HasErrors reports whether any producer logged a failure.
func (s *RunState) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors) > 0
}

// Snapshot returns a copy safe to serialize.
func (s *RunState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	errors := make([]string, len(s.errors))
	copy(errors, s.errors)
	actions := make([]Action, len(s.actions))
	copy(actions, s.actions)
	return Snapshot{
		RunName:     s.runName,
		Phase:       s.phase,
		Iteration:   s.iteration,
		Completed:   s.completed,
		Errors:      errors,
		Actions:     actions,
		StartTime:   s.startTime,
		LastUpdated: s.lastUpdated,
	}
}
