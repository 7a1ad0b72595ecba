// Package argument extracts argumentation-scheme structure from merged
// segments.
package argument

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/schema"
)

// SchemaName identifies the analysis reply schema.
const SchemaName = "argument_analysis"

// DefaultConcurrency bounds in-flight oracle calls per run.
const DefaultConcurrency = 4

const systemPrompt = `You are an expert in argumentation theory.
Analyze the debate segment you are given using Walton's argumentation schemes:
- scheme: the name of the argumentation scheme that best fits the segment.
- premises: the premises the speaker relies on, in order.
- conclusion: the claim the speaker argues for.
- critical_questions: the critical questions of that scheme, applied to this argument.
- short_name: a label of a few words that identifies the argument.
Stay close to the speaker's words. Do not invent premises the speaker did not state or clearly imply.`

// ExtractionError reports the segment whose analysis failed.
type ExtractionError struct {
	Index   int
	Speaker string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("segment %d (speaker %s): %v", e.Index, e.Speaker, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Analyzer runs one oracle call per segment.
type Analyzer struct {
	oracle      oracle.Oracle
	validator   *schema.Validator
	concurrency int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewAnalyzer creates an analyzer. concurrency <= 0 uses DefaultConcurrency.
func NewAnalyzer(o oracle.Oracle, concurrency int, m *metrics.Metrics) *Analyzer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Analyzer{
		oracle:      o,
		validator:   schema.New(),
		concurrency: concurrency,
		metrics:     m,
		logger:      logging.WithComponent("argument"),
	}
}

// Analyze returns exactly one analysis for seg. Oracle failures, empty
// replies and replies that fail validation are all errors.
func (a *Analyzer) Analyze(ctx context.Context, seg models.MergedSegment) (models.ArgumentAnalysis, error) {
	var out models.ArgumentAnalysis
	start := time.Now()
	err := a.oracle.Complete(ctx, oracle.Request{
		Name:    SchemaName,
		System:  systemPrompt,
		Prompt:  renderPrompt(seg),
		Payload: seg,
	}, &out)
	a.metrics.RecordOracleCall(SchemaName, oracle.Outcome(err), time.Since(start).Seconds())
	if err != nil {
		return models.ArgumentAnalysis{}, err
	}

	out = tidy(out)
	if err := a.validator.Validate(out); err != nil {
		return models.ArgumentAnalysis{}, err
	}
	return out, nil
}

// AnalyzeAll analyzes every segment, at most a.concurrency at a time, and
// returns the arguments in segment order with TempID = position + 1. The
// first failure cancels the remaining calls and is returned as an
// *ExtractionError.
func (a *Analyzer) AnalyzeAll(ctx context.Context, segments []models.MergedSegment) ([]models.AnalyzedArgument, error) {
	results := make([]models.AnalyzedArgument, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			analysis, err := a.Analyze(gctx, seg)
			if err != nil {
				return &ExtractionError{Index: i, Speaker: seg.Speaker, Err: err}
			}
			results[i] = models.AnalyzedArgument{TempID: i + 1, Segment: seg, Analysis: analysis}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error().Err(err).Int("segments", len(segments)).Msg("Argument extraction failed")
		return nil, err
	}

	a.metrics.RecordArguments(len(results))
	return results, nil
}

func renderPrompt(seg models.MergedSegment) string {
	return fmt.Sprintf("Speaker %s (%.1fs to %.1fs):\n%s",
		seg.Speaker, float64(seg.Start)/1000, float64(seg.End)/1000, seg.Text)
}

// tidy trims whitespace and drops blank list items. Lists may end up empty.
func tidy(a models.ArgumentAnalysis) models.ArgumentAnalysis {
	a.Scheme = strings.TrimSpace(a.Scheme)
	a.Conclusion = strings.TrimSpace(a.Conclusion)
	a.ShortName = strings.TrimSpace(a.ShortName)
	a.Premises = compact(a.Premises)
	a.CriticalQuestions = compact(a.CriticalQuestions)
	return a
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
