// Package models defines the data structures that flow through the debate
// argument graph pipeline.
package models

// Transcript status values reported by the transcription collaborator.
const (
	TranscriptStatusCompleted = "completed"
	TranscriptStatusError     = "error"
)

// Word is a single transcribed word. Times are milliseconds from the start
// of the recording.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Utterance is one diarized, speaker-attributed span of speech.
type Utterance struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
	Words      []Word  `json:"words"`
}

// Transcript is the output contract of the transcription collaborator.
type Transcript struct {
	ExternalID    string      `json:"id"`
	Text          string      `json:"text"`
	Utterances    []Utterance `json:"utterances"`
	Words         []Word      `json:"words"`
	Confidence    float64     `json:"confidence"`
	AudioDuration float64     `json:"audio_duration"`
	Status        string      `json:"status"`
	Error         string      `json:"error,omitempty"`
}

// Speakers returns the distinct speakers in order of first appearance.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range t.Utterances {
		if !seen[u.Speaker] {
			seen[u.Speaker] = true
			out = append(out, u.Speaker)
		}
	}
	return out
}
