// Package segment collapses a diarized utterance stream into same-speaker
// argument segments.
package segment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/schema"
)

// SchemaName identifies the segmentation reply schema.
const SchemaName = "merged_segments"

// ErrMisaligned is returned when an oracle grouping does not cover the
// input utterances exactly once, in order, one speaker per segment.
var ErrMisaligned = errors.New("segments do not align with utterances")

const systemPrompt = `You segment debate transcripts into arguments.
You receive a JSON list of diarized utterances in order. Group them into segments:
- Merge only consecutive utterances that share a speaker.
- An utterance by another speaker, even a short interjection such as "right" or "okay", ends the current segment and becomes a segment of its own. Never merge utterances across it.
- Every utterance belongs to exactly one segment. Copy utterance text verbatim and join merged texts with a single space.
- Set each segment's start to its first utterance's start and its end to its last utterance's end.
Explain your grouping decisions in steps, then give the segments in final_answer in transcript order.`

type reply struct {
	Steps       []string               `json:"steps" description:"Reasoning behind the grouping"`
	FinalAnswer []models.MergedSegment `json:"final_answer"`
}

type promptUtterance struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// Result is the merger output. Fallback reports that the local run-length
// merge was used, and Reason why.
type Result struct {
	Segments []models.MergedSegment
	Fallback bool
	Reason   string
}

// Merger groups utterances with the oracle and falls back to RunLengthMerge
// whenever the oracle fails or its grouping does not verify.
type Merger struct {
	oracle    oracle.Oracle
	validator *schema.Validator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewMerger creates a merger. A nil oracle always takes the fallback.
func NewMerger(o oracle.Oracle, m *metrics.Metrics) *Merger {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Merger{
		oracle:    o,
		validator: schema.New(),
		metrics:   m,
		logger:    logging.WithComponent("segment"),
	}
}

// Merge returns the segments for utterances. Only cancellation of ctx is
// reported as an error; every other failure degrades to the local merge.
func (m *Merger) Merge(ctx context.Context, utterances []models.Utterance) (Result, error) {
	if len(utterances) == 0 {
		return Result{Segments: []models.MergedSegment{}}, nil
	}
	if m.oracle == nil {
		return m.fallback(utterances, "no oracle configured"), nil
	}

	segments, err := m.ask(ctx, utterances)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return m.fallback(utterances, err.Error()), nil
	}
	return Result{Segments: segments}, nil
}

func (m *Merger) ask(ctx context.Context, utterances []models.Utterance) ([]models.MergedSegment, error) {
	prompt, err := renderPrompt(utterances)
	if err != nil {
		return nil, err
	}

	var out reply
	start := time.Now()
	err = m.oracle.Complete(ctx, oracle.Request{
		Name:    SchemaName,
		System:  systemPrompt,
		Prompt:  prompt,
		Payload: utterances,
	}, &out)
	m.metrics.RecordOracleCall(SchemaName, oracle.Outcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if len(out.FinalAnswer) == 0 {
		return nil, fmt.Errorf("empty final_answer: %w", oracle.ErrNoParseableResult)
	}
	if err := schema.ValidateEach(m.validator, out.FinalAnswer); err != nil {
		return nil, err
	}
	return Align(utterances, out.FinalAnswer)
}

func (m *Merger) fallback(utterances []models.Utterance, reason string) Result {
	m.metrics.RecordMergerFallback()
	m.logger.Warn().
		Str("reason", reason).
		Int("utterances", len(utterances)).
		Msg("Segmentation fell back to run-length merge")
	return Result{
		Segments: RunLengthMerge(utterances),
		Fallback: true,
		Reason:   reason,
	}
}

func renderPrompt(utterances []models.Utterance) (string, error) {
	items := make([]promptUtterance, len(utterances))
	for i, u := range utterances {
		items[i] = promptUtterance{Index: i, Speaker: u.Speaker, Text: u.Text, Start: u.Start, End: u.End}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render utterances: %w", err)
	}
	return "Utterances:\n" + string(raw), nil
}

// RunLengthMerge merges every run of consecutive same-speaker utterances
// into one segment. It makes no external calls.
func RunLengthMerge(utterances []models.Utterance) []models.MergedSegment {
	out := []models.MergedSegment{}
	for i := 0; i < len(utterances); {
		j := i + 1
		for j < len(utterances) && utterances[j].Speaker == utterances[i].Speaker {
			j++
		}
		out = append(out, span(utterances[i:j]))
		i = j
	}
	return out
}

// Align checks that segments partition utterances into consecutive
// same-speaker runs, in order, and rebuilds each segment from its
// constituent utterances. Whitespace differences in text are tolerated.
func Align(utterances []models.Utterance, segments []models.MergedSegment) ([]models.MergedSegment, error) {
	out := make([]models.MergedSegment, 0, len(segments))
	i := 0
	for n, s := range segments {
		target := normalize(s.Text)
		j := i
		acc := ""
		for {
			if j >= len(utterances) {
				return nil, fmt.Errorf("segment %d runs past the last utterance: %w", n, ErrMisaligned)
			}
			u := utterances[j]
			if u.Speaker != s.Speaker {
				return nil, fmt.Errorf("segment %d (speaker %s) reaches utterance %d of speaker %s: %w",
					n, s.Speaker, j, u.Speaker, ErrMisaligned)
			}
			acc = joinText(acc, normalize(u.Text))
			j++
			if acc == target {
				break
			}
			if !strings.HasPrefix(target, acc) {
				return nil, fmt.Errorf("segment %d text diverges at utterance %d: %w", n, j-1, ErrMisaligned)
			}
		}
		// Trailing empty utterances of the same speaker carry no text to match.
		for j < len(utterances) && utterances[j].Speaker == s.Speaker && normalize(utterances[j].Text) == "" {
			j++
		}
		out = append(out, span(utterances[i:j]))
		i = j
	}
	if i != len(utterances) {
		return nil, fmt.Errorf("%d trailing utterances not covered: %w", len(utterances)-i, ErrMisaligned)
	}
	return out, nil
}

func span(run []models.Utterance) models.MergedSegment {
	text := ""
	for _, u := range run {
		text = joinText(text, strings.TrimSpace(u.Text))
	}
	return models.MergedSegment{
		Text:    text,
		Speaker: run[0].Speaker,
		Start:   run[0].Start,
		End:     run[len(run)-1].End,
	}
}

func joinText(acc, next string) string {
	switch {
	case next == "":
		return acc
	case acc == "":
		return next
	default:
		return acc + " " + next
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
