package graph

import (
	"errors"
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("run-1")

	if lc.State() != StatePending {
		t.Errorf("expected StatePending, got %v", lc.State())
	}
	if lc.RunID() != "run-1" {
		t.Errorf("expected run-1, got %v", lc.RunID())
	}
	if lc.IsFinished() {
		t.Error("expected IsFinished to be false")
	}
}

func TestLifecycle_FullCycle(t *testing.T) {
	lc := NewLifecycle("run-1")

	for _, next := range []RunState{
		StateTranscribing, StateSegmenting, StateAnalyzing,
		StateRelating, StateCommitting, StateCommitted,
	} {
		if err := lc.Advance(next); err != nil {
			t.Fatalf("advance to %v: %v", next, err)
		}
		if lc.State() != next {
			t.Fatalf("expected %v, got %v", next, lc.State())
		}
	}
	if !lc.IsFinished() {
		t.Error("expected IsFinished after COMMITTED")
	}
}

func TestLifecycle_SkipTranscription(t *testing.T) {
	lc := NewLifecycle("run-1")
	if err := lc.Advance(StateSegmenting); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from []RunState
		to   RunState
	}{
		{"skip analysis", []RunState{StateSegmenting}, StateRelating},
		{"backwards", []RunState{StateSegmenting, StateAnalyzing}, StateSegmenting},
		{"commit early", []RunState{StateSegmenting}, StateCommitting},
		{"to failed via advance", []RunState{StateSegmenting, StateAnalyzing, StateRelating, StateCommitting, StateCommitted}, StateFailed},
		{"repeat", []RunState{StateTranscribing}, StateTranscribing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("run-1")
			for _, s := range tt.from {
				if err := lc.Advance(s); err != nil {
					t.Fatalf("setup advance to %v: %v", s, err)
				}
			}
			if err := lc.Advance(tt.to); err == nil {
				t.Errorf("expected error advancing %v → %v", lc.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_Fail(t *testing.T) {
	lc := NewLifecycle("run-1")
	_ = lc.Advance(StateTranscribing)

	if !lc.Fail() {
		t.Error("expected Fail to return true from TRANSCRIBING")
	}
	if lc.State() != StateFailed {
		t.Errorf("expected StateFailed, got %v", lc.State())
	}
	if lc.Fail() {
		t.Error("expected second Fail to return false")
	}
	if err := lc.Advance(StateSegmenting); !errors.Is(err, ErrRunFinished) {
		t.Errorf("expected ErrRunFinished, got %v", err)
	}
}

func TestLifecycle_Fail_DuringCommit(t *testing.T) {
	lc := NewLifecycle("run-1")
	for _, s := range []RunState{StateSegmenting, StateAnalyzing, StateRelating, StateCommitting} {
		_ = lc.Advance(s)
	}
	// A rolled-back commit fails the run.
	if !lc.Fail() {
		t.Error("expected Fail to succeed from COMMITTING")
	}
}

func TestLifecycle_Cancel(t *testing.T) {
	lc := NewLifecycle("run-1")
	_ = lc.Advance(StateSegmenting)

	if err := lc.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.State() != StateFailed {
		t.Errorf("expected StateFailed, got %v", lc.State())
	}
	if err := lc.Cancel(); !errors.Is(err, ErrRunFinished) {
		t.Errorf("expected ErrRunFinished, got %v", err)
	}
}

func TestLifecycle_Cancel_RefusedDuringCommit(t *testing.T) {
	lc := NewLifecycle("run-1")
	for _, s := range []RunState{StateSegmenting, StateAnalyzing, StateRelating, StateCommitting} {
		_ = lc.Advance(s)
	}

	if err := lc.Cancel(); !errors.Is(err, ErrCommitInProgress) {
		t.Fatalf("expected ErrCommitInProgress, got %v", err)
	}
	if lc.State() != StateCommitting {
		t.Errorf("expected StateCommitting, got %v", lc.State())
	}
	if err := lc.Advance(StateCommitted); err != nil {
		t.Errorf("commit should still complete: %v", err)
	}
}

func TestLifecycle_ConcurrentCancel(t *testing.T) {
	lc := NewLifecycle("run-1")
	_ = lc.Advance(StateSegmenting)

	var wg sync.WaitGroup
	var succeeded int
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lc.Cancel() == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one successful cancel, got %d", succeeded)
	}
}

func TestRunState_String(t *testing.T) {
	tests := []struct {
		state    RunState
		expected string
	}{
		{StatePending, "PENDING"},
		{StateTranscribing, "TRANSCRIBING"},
		{StateSegmenting, "SEGMENTING"},
		{StateAnalyzing, "ANALYZING"},
		{StateRelating, "RELATING"},
		{StateCommitting, "COMMITTING"},
		{StateCommitted, "COMMITTED"},
		{StateFailed, "FAILED"},
		{RunState(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestRunState_IsTerminal(t *testing.T) {
	for s := StatePending; s <= StateFailed; s++ {
		want := s == StateCommitted || s == StateFailed
		if s.IsTerminal() != want {
			t.Errorf("%v.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
	}
}
