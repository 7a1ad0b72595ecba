// Package transcription defines the speech-to-text collaborator the debate
// pipeline consumes: audio bytes in, a diarized transcript out.
package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ai-debate-graph-service/internal/models"
)

// ErrTranscriptionFailed marks a transcript that came back with an error
// status. It is terminal for the run.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber converts one audio buffer into a diarized transcript.
// Implementations may return a transcript whose Status is
// models.TranscriptStatusError; callers run Check on every result.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*models.Transcript, error)
}

// Factory builds a Transcriber bound to a per-run credential.
type Factory func(ctx context.Context, credential string) (Transcriber, error)

// Check returns ErrTranscriptionFailed for an error-status or empty
// transcript.
func Check(t *models.Transcript) error {
	if t == nil {
		return fmt.Errorf("no transcript: %w", ErrTranscriptionFailed)
	}
	if t.Status == models.TranscriptStatusError {
		msg := t.Error
		if msg == "" {
			msg = "provider reported an error"
		}
		return fmt.Errorf("%s: %w", msg, ErrTranscriptionFailed)
	}
	if t.Status != models.TranscriptStatusCompleted {
		return fmt.Errorf("unexpected status %q: %w", t.Status, ErrTranscriptionFailed)
	}
	return nil
}

// Decode reads a transcript document, as produced by a provider or by
// debatectl, and checks it.
func Decode(r io.Reader) (*models.Transcript, error) {
	var t models.Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if t.Status == "" {
		t.Status = models.TranscriptStatusCompleted
	}
	if err := Check(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
