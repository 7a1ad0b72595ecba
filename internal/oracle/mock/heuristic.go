package mock

import (
	"fmt"
	"strings"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/oracle"
)

// Schema names answered by the heuristic oracle.
const (
	SchemaMergedSegments   = "merged_segments"
	SchemaArgumentAnalysis = "argument_analysis"
	SchemaRelations        = "relations"
)

// NewHeuristic returns an oracle that answers every pipeline request from
// the structured payload with simple local rules. Segmentation is declined
// so the merger falls back to its local merge; analysis splits sentences
// into premises and conclusion; relations mark each reply to a different
// speaker as a rebuttal.
func NewHeuristic() *Oracle {
	return New().
		On(SchemaMergedSegments, Fail(fmt.Errorf("heuristic oracle does not segment: %w", oracle.ErrNoParseableResult))).
		On(SchemaArgumentAnalysis, analyze).
		On(SchemaRelations, relate)
}

func analyze(req oracle.Request) (any, error) {
	seg, ok := req.Payload.(models.MergedSegment)
	if !ok {
		return nil, fmt.Errorf("heuristic oracle: unexpected payload %T: %w", req.Payload, oracle.ErrNoParseableResult)
	}
	sentences := splitSentences(seg.Text)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("heuristic oracle: empty segment: %w", oracle.ErrNoParseableResult)
	}
	conclusion := sentences[len(sentences)-1]
	premises := sentences[:len(sentences)-1]
	if len(premises) == 0 {
		premises = []string{conclusion}
	}
	return models.ArgumentAnalysis{
		Scheme:            "Argument from Position to Know",
		Premises:          premises,
		Conclusion:        conclusion,
		CriticalQuestions: []string{fmt.Sprintf("Is speaker %s in a position to know this?", seg.Speaker)},
		ShortName:         shorten(conclusion, 6),
	}, nil
}

func relate(req oracle.Request) (any, error) {
	args, ok := req.Payload.([]models.AnalyzedArgument)
	if !ok {
		return nil, fmt.Errorf("heuristic oracle: unexpected payload %T: %w", req.Payload, oracle.ErrNoParseableResult)
	}
	rels := []models.InferredRelation{}
	for i := 1; i < len(args); i++ {
		prev, cur := args[i-1], args[i]
		if prev.Segment.Speaker == cur.Segment.Speaker {
			continue
		}
		rels = append(rels, models.InferredRelation{
			Source:      cur.TempID,
			Target:      prev.TempID,
			Type:        models.RelationAttack,
			Criterion:   models.CriterionRebuttal,
			Confidence:  0.5,
			Description: "reply by the opposing speaker",
		})
	}
	return map[string]any{"relations": rels}, nil
}

func splitSentences(text string) []string {
	f := func(r rune) bool { return r == '.' || r == '!' || r == '?' }
	var out []string
	for _, s := range strings.FieldsFunc(text, f) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func shorten(s string, words int) string {
	fields := strings.Fields(s)
	if len(fields) > words {
		fields = fields[:words]
	}
	return strings.Join(fields, " ")
}
