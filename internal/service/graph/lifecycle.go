package graph

import (
	"errors"
	"fmt"
	"sync"
)

// RunState represents the lifecycle state of a pipeline run.
type RunState int

const (
	// StatePending - run accepted, nothing started.
	StatePending RunState = iota
	// StateTranscribing - waiting on the transcription collaborator.
	StateTranscribing
	// StateSegmenting - merging utterances into segments.
	StateSegmenting
	// StateAnalyzing - extracting one argument per segment.
	StateAnalyzing
	// StateRelating - inferring relations over all arguments.
	StateRelating
	// StateCommitting - the persistence transaction is open. Cancellation is
	// refused from here on.
	StateCommitting
	// StateCommitted - the debate is durable. Terminal.
	StateCommitted
	// StateFailed - the run aborted and nothing was persisted. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s RunState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateSegmenting:
		return "SEGMENTING"
	case StateAnalyzing:
		return "ANALYZING"
	case StateRelating:
		return "RELATING"
	case StateCommitting:
		return "COMMITTING"
	case StateCommitted:
		return "COMMITTED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMMITTED or FAILED).
func (s RunState) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrRunFinished       = errors.New("run already finished")
	ErrInvalidTransition = errors.New("invalid run state transition")
	ErrCommitInProgress  = errors.New("commit in progress, run can no longer be canceled")
)

// Lifecycle manages the state machine for a single run.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	PENDING → TRANSCRIBING → SEGMENTING → ANALYZING → RELATING → COMMITTING → COMMITTED
//	   │                                                              │
//	   └── (transcript supplied) → SEGMENTING                         └── Fail() ──→ FAILED
//
// Any non-terminal state may Fail(). Cancel() behaves like Fail() except
// in COMMITTING, where it is refused.
type Lifecycle struct {
	mu    sync.RWMutex
	runID string
	state RunState
}

// NewLifecycle creates a new run lifecycle in PENDING state.
func NewLifecycle(runID string) *Lifecycle {
	return &Lifecycle{
		runID: runID,
		state: StatePending,
	}
}

// RunID returns the run ID.
func (l *Lifecycle) RunID() string {
	return l.runID
}

// State returns the current state.
func (l *Lifecycle) State() RunState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsFinished returns true if the run is in a terminal state.
func (l *Lifecycle) IsFinished() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Advance moves the run forward to next. Only the immediate successor is
// allowed, except that a run with a supplied transcript may skip
// TRANSCRIBING.
func (l *Lifecycle) Advance(next RunState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return fmt.Errorf("%w: %v", ErrRunFinished, l.state)
	}
	ok := next == l.state+1 && next <= StateCommitted
	if l.state == StatePending && next == StateSegmenting {
		ok = true
	}
	if !ok {
		return fmt.Errorf("%w: %v → %v", ErrInvalidTransition, l.state, next)
	}
	l.state = next
	return nil
}

// Fail transitions the run to FAILED.
// Returns true if the run was failed, false if already in a terminal state.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false // Already in terminal state
	}
	l.state = StateFailed
	return true
}

// Cancel fails the run unless its commit has started.
func (l *Lifecycle) Cancel() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.state.IsTerminal():
		return fmt.Errorf("%w: %v", ErrRunFinished, l.state)
	case l.state == StateCommitting:
		return ErrCommitInProgress
	default:
		l.state = StateFailed
		return nil
	}
}
