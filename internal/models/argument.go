package models

// MergedSegment is one or more consecutive same-speaker utterances treated
// as a single argumentative unit.
type MergedSegment struct {
	Text    string `json:"text" validate:"required"`
	Speaker string `json:"speaker" validate:"required"`
	Start   int64  `json:"start"`
	End     int64  `json:"end" validate:"gtefield=Start"`
}

// ArgumentAnalysis is the argumentation-scheme structure extracted from one
// segment.
type ArgumentAnalysis struct {
	Scheme            string   `json:"scheme" validate:"required" description:"Walton argumentation scheme name"`
	Premises          []string `json:"premises" validate:"required,dive,required"`
	Conclusion        string   `json:"conclusion" validate:"required"`
	CriticalQuestions []string `json:"critical_questions" validate:"required,dive,required"`
	ShortName         string   `json:"short_name" validate:"required" description:"A short human-readable label for the argument"`
}

// AnalyzedArgument pairs a segment with its analysis under a temporary,
// 1-based positional id.
type AnalyzedArgument struct {
	TempID   int
	Segment  MergedSegment
	Analysis ArgumentAnalysis
}
