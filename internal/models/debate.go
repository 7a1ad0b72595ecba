package models

import "time"

// DebateGraph is the transient entity graph of one pipeline run, committed
// as a unit.
type DebateGraph struct {
	Title       string
	Description string
	Transcript  *Transcript
	Arguments   []AnalyzedArgument
	Relations   []InferredRelation
}

// Debate is the persisted root aggregate.
type Debate struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredTranscript is the persisted transcript row.
type StoredTranscript struct {
	ID            int64       `json:"id"`
	DebateID      int64       `json:"debate_id"`
	ExternalID    string      `json:"external_id"`
	Text          string      `json:"text"`
	Utterances    []Utterance `json:"utterances"`
	Words         []Word      `json:"words"`
	Confidence    float64     `json:"confidence"`
	AudioDuration float64     `json:"audio_duration"`
	Status        string      `json:"status"`
	Error         string      `json:"error,omitempty"`
}

// Argument is a persisted argument with its owned sub-entities.
type Argument struct {
	ID                int64              `json:"id"`
	DebateID          int64              `json:"debate_id"`
	Scheme            string             `json:"scheme"`
	Conclusion        string             `json:"conclusion"`
	Text              string             `json:"text"`
	Speaker           string             `json:"speaker"`
	Start             int64              `json:"start"`
	End               int64              `json:"end"`
	ShortName         string             `json:"short_name"`
	Premises          []Premise          `json:"premises"`
	CriticalQuestions []CriticalQuestion `json:"critical_questions"`
}

// Premise is owned by exactly one Argument.
type Premise struct {
	ID         int64  `json:"id"`
	ArgumentID int64  `json:"argument_id"`
	Text       string `json:"text"`
}

// CriticalQuestion is owned by exactly one Argument.
type CriticalQuestion struct {
	ID         int64  `json:"id"`
	ArgumentID int64  `json:"argument_id"`
	Text       string `json:"text"`
}

// Relation is a persisted relation addressed by durable argument ids.
type Relation struct {
	ID          int64        `json:"id"`
	DebateID    int64        `json:"debate_id"`
	SourceID    int64        `json:"source_id"`
	TargetID    int64        `json:"target_id"`
	Type        RelationType `json:"type"`
	Criterion   Criterion    `json:"criterion"`
	Confidence  float64      `json:"confidence"`
	Description string       `json:"description,omitempty"`
}

// DebateDetail is the read model of a committed debate.
type DebateDetail struct {
	Debate     Debate            `json:"debate"`
	Transcript *StoredTranscript `json:"transcript,omitempty"`
	Arguments  []Argument        `json:"arguments"`
	Relations  []Relation        `json:"relations"`
}

// DebateSummary is one row of the debate listing.
type DebateSummary struct {
	Debate
	Arguments int `json:"arguments"`
	Relations int `json:"relations"`
}
