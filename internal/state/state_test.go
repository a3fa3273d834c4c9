package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	s := NewRunState("run-1")

	snap := s.Snapshot()
	assert.Equal(t, "init", snap.Phase)
	assert.Zero(t, snap.Iteration)
	assert.False(t, snap.Completed)

	s.SetPhase("collect")
	s.SetPhase("analyze")
	s.SetCompleted()

	snap = s.Snapshot()
	assert.Equal(t, "done", snap.Phase)
	assert.Equal(t, 2, snap.Iteration)
	assert.True(t, snap.Completed)
}

func TestActionsCarryIterationContext(t *testing.T) {
	s := NewRunState("run-1")
	s.SetPhase("collect")
	s.AddAction("diff", "3 files")
	s.SetPhase("analyze")
	s.AddAction("taint", "")

	snap := s.Snapshot()
	require.Len(t, snap.Actions, 2)
	assert.Equal(t, 1, snap.Actions[0].Iteration)
	assert.Equal(t, 2, snap.Actions[1].Iteration)
	assert.NotEmpty(t, snap.Actions[0].Timestamp)
}

func TestErrorsAccumulate(t *testing.T) {
	s := NewRunState("run-1")
	assert.False(t, s.HasErrors())
	s.AddError("llm unreachable")
	s.AddError("heuristics skipped")
	assert.True(t, s.HasErrors())
	assert.Len(t, s.Snapshot().Errors, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewRunState("run-1")
	s.AddError("first")
	snap := s.Snapshot()
	s.AddError("second")
	assert.Len(t, snap.Errors, 1)
}

func TestConcurrentProducers(t *testing.T) {
	s := NewRunState("run-1")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddAction("work", "")
			s.AddError("oops")
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Actions, 8)
	assert.Len(t, snap.Errors, 8)
}
