package graph

import (
	"context"
	"errors"
	"fmt"

	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/schema"
)

// Stage names the pipeline stage a run failed in.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageSegmentation  Stage = "segmentation"
	StageAnalysis      Stage = "analysis"
	StageRelations     Stage = "relations"
	StagePersistence   Stage = "persistence"
)

// Kind classifies a failure.
type Kind string

const (
	// KindUpstream - transcription error status, oracle transport error or timeout.
	KindUpstream Kind = "upstream"
	// KindSchema - an oracle reply did not conform to the required shape.
	KindSchema Kind = "schema"
	// KindPersistence - the commit transaction failed and was rolled back.
	KindPersistence Kind = "persistence"
	// KindCanceled - the caller went away before the commit started.
	KindCanceled Kind = "canceled"
)

// StageError is the single error a caller sees for a failed run.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AsStageError extracts a StageError from err.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// classify wraps err for stage. A failure is only reported as canceled when
// the caller's ctx is done; deadlines internal to a client are upstream.
func classify(ctx context.Context, stage Stage, err error) *StageError {
	if se, ok := AsStageError(err); ok {
		return se
	}
	se := &StageError{Stage: stage, Err: err}
	switch {
	case ctx.Err() != nil && stage != StagePersistence:
		se.Kind = KindCanceled
	case stage == StagePersistence:
		se.Kind = KindPersistence
	case oracle.IsSchemaFailure(err), errors.Is(err, schema.ErrValidation):
		se.Kind = KindSchema
	default:
		se.Kind = KindUpstream
	}
	return se
}
