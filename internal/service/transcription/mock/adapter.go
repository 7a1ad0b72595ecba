// Package mock provides a transcription adapter for running without cloud
// credentials. It replays a scripted, already-diarized debate.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/service/transcription"
)

// ScriptedUtterance is one line of a simulated debate.
type ScriptedUtterance struct {
	Speaker    string
	Text       string
	DurationMs int64
	Confidence float64
}

// DefaultScript is a short two-speaker exchange.
var DefaultScript = []ScriptedUtterance{
	{Speaker: "A", Text: "The city should ban private cars from the downtown core.", DurationMs: 4200, Confidence: 0.94},
	{Speaker: "A", Text: "Traffic accounts for most of the particulate pollution measured there.", DurationMs: 4800, Confidence: 0.91},
	{Speaker: "B", Text: "Right.", DurationMs: 600, Confidence: 0.98},
	{Speaker: "B", Text: "A ban would hurt the small shops that depend on drive-in customers.", DurationMs: 4500, Confidence: 0.89},
	{Speaker: "A", Text: "Pedestrian zones in other cities increased foot traffic to small shops.", DurationMs: 4700, Confidence: 0.92},
	{Speaker: "B", Text: "Those cities had far better public transit than we do.", DurationMs: 3900, Confidence: 0.9},
}

// Adapter implements transcription.Transcriber with scripted output.
type Adapter struct {
	mu     sync.Mutex
	script []ScriptedUtterance
	// ForceError makes every call return an error-status transcript.
	ForceError string
	calls      int
}

// New creates an adapter replaying script, or DefaultScript when nil.
func New(script []ScriptedUtterance) *Adapter {
	if script == nil {
		script = DefaultScript
	}
	return &Adapter{script: script}
}

// Factory returns a transcription.Factory that ignores the credential.
func Factory(a *Adapter) transcription.Factory {
	return func(context.Context, string) (transcription.Transcriber, error) {
		return a, nil
	}
}

// Calls returns how many transcriptions were requested.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Transcribe implements transcription.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (*models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.calls++
	id := fmt.Sprintf("mock-%d", a.calls)
	a.mu.Unlock()

	if len(audio) == 0 {
		return &models.Transcript{ExternalID: id, Status: models.TranscriptStatusError, Error: "empty audio"}, nil
	}
	if a.ForceError != "" {
		return &models.Transcript{ExternalID: id, Status: models.TranscriptStatusError, Error: a.ForceError}, nil
	}
	return Build(id, a.script), nil
}

// Build lays script out on a timeline, spreading each utterance's duration
// evenly over its words.
func Build(id string, script []ScriptedUtterance) *models.Transcript {
	t := &models.Transcript{
		ExternalID: id,
		Status:     models.TranscriptStatusCompleted,
		Utterances: []models.Utterance{},
		Words:      []models.Word{},
	}

	var (
		clock   int64
		texts   []string
		confSum float64
	)
	for _, s := range script {
		fields := strings.Fields(s.Text)
		u := models.Utterance{
			Text:       s.Text,
			Start:      clock,
			End:        clock + s.DurationMs,
			Confidence: s.Confidence,
			Speaker:    s.Speaker,
			Words:      make([]models.Word, 0, len(fields)),
		}
		if n := int64(len(fields)); n > 0 {
			step := s.DurationMs / n
			for i, f := range fields {
				w := models.Word{
					Text:       f,
					Start:      clock + int64(i)*step,
					End:        clock + int64(i+1)*step,
					Confidence: s.Confidence,
					Speaker:    s.Speaker,
				}
				if i == len(fields)-1 {
					w.End = u.End
				}
				u.Words = append(u.Words, w)
			}
		}
		t.Utterances = append(t.Utterances, u)
		t.Words = append(t.Words, u.Words...)
		texts = append(texts, s.Text)
		confSum += s.Confidence
		clock = u.End
	}

	t.Text = strings.Join(texts, " ")
	if len(script) > 0 {
		t.Confidence = confSum / float64(len(script))
	}
	t.AudioDuration = float64(clock) / 1000
	return t
}
