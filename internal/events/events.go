package events

import "time"

// Event types, also used as the eventType header.
const (
	TypeDebateCreated = "debate.created"
	TypeDebateFailed  = "debate.failed"
)

// DebateCreated is published after a debate graph has been committed.
type DebateCreated struct {
	EventType            string    `json:"eventType"`
	RunID                string    `json:"runId"`
	DebateID             int64     `json:"debateId"`
	Title                string    `json:"title"`
	Speakers             []string  `json:"speakers"`
	AudioDuration        float64   `json:"audioDuration"`
	Arguments            int       `json:"arguments"`
	Relations            int       `json:"relations"`
	SegmentationFallback bool      `json:"segmentationFallback"`
	Timestamp            time.Time `json:"timestamp"`
}

// DebateFailed is published when a run aborts. Nothing was persisted.
type DebateFailed struct {
	EventType string    `json:"eventType"`
	RunID     string    `json:"runId"`
	Title     string    `json:"title"`
	Stage     string    `json:"stage"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
