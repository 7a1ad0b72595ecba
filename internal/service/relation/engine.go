// Package relation infers support and attack relations among the analyzed
// arguments of one debate.
package relation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/schema"
)

// SchemaName identifies the relations reply schema.
const SchemaName = "relations"

const systemPrompt = `You are an expert in abstract and bipolar argumentation frameworks.
You receive the arguments of one debate, each with a numeric id. Judge how pairs of arguments relate.

An argument ATTACKS another when it:
- LOGICAL_CONTRADICTION: asserts the negation of the other's conclusion or a premise.
- PREMISE_UNDERMINING: gives reason to doubt one of the other's premises.
- REBUTTAL: argues for a conclusion incompatible with the other's conclusion.
- UNDERCUTTING: denies that the other's premises support its conclusion.

An argument SUPPORTS another when it:
- PREMISE_REINFORCEMENT: gives reason to accept one of the other's premises.
- CONCLUSION_STRENGTHENING: independently argues for the other's conclusion.
- INFERENTIAL_BACKING: backs the step from the other's premises to its conclusion.
- EVIDENTIAL_SUPPORT: supplies evidence for the other's claims.

Use type NONE with criterion NO_RELATION for a pair you examined and found unrelated.
source is the argument exerting the relation and target the argument it acts on; they must differ and must be ids from the list.
Give each verdict a confidence between 0 and 1 and a one-sentence description. If a pair shows signs of both attack and support, choose the stronger one.`

type reply struct {
	Relations []models.InferredRelation `json:"relations"`
}

type promptArgument struct {
	ID         int      `json:"id"`
	Speaker    string   `json:"speaker"`
	ShortName  string   `json:"short_name"`
	Scheme     string   `json:"scheme"`
	Premises   []string `json:"premises"`
	Conclusion string   `json:"conclusion"`
	Text       string   `json:"text"`
}

// Engine infers relations with a single oracle call over all arguments.
type Engine struct {
	oracle    oracle.Oracle
	validator *schema.Validator
	maxPairs  int
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewEngine creates an engine. maxPairs bounds the number of ATTACK and
// SUPPORT verdicts kept; 0 means unbounded.
func NewEngine(o oracle.Oracle, maxPairs int, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Engine{
		oracle:    o,
		validator: schema.New(),
		maxPairs:  maxPairs,
		metrics:   m,
		logger:    logging.WithComponent("relation"),
	}
}

// Infer returns relation verdicts over the temporary ids of args, which
// must be 1..len(args) in order. NONE verdicts are kept. Any oracle failure
// or invalid verdict fails the whole call.
func (e *Engine) Infer(ctx context.Context, args []models.AnalyzedArgument) ([]models.InferredRelation, error) {
	if len(args) < 2 {
		return []models.InferredRelation{}, nil
	}
	for i, a := range args {
		if a.TempID != i+1 {
			return nil, fmt.Errorf("argument at position %d has temporary id %d: %w", i, a.TempID, models.ErrOutOfOrder)
		}
	}

	prompt, err := e.renderPrompt(args)
	if err != nil {
		return nil, err
	}

	var out reply
	start := time.Now()
	err = e.oracle.Complete(ctx, oracle.Request{
		Name:    SchemaName,
		System:  systemPrompt,
		Prompt:  prompt,
		Payload: args,
	}, &out)
	e.metrics.RecordOracleCall(SchemaName, oracle.Outcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	rels, err := e.check(out.Relations, len(args))
	if err != nil {
		return nil, err
	}
	rels = e.bound(rels)

	for _, r := range rels {
		e.metrics.RecordRelation(string(r.Type))
	}
	e.logger.Info().
		Int("arguments", len(args)).
		Int("verdicts", len(rels)).
		Msg("Relations inferred")
	return rels, nil
}

// check validates every verdict and collapses repeated pairs to the most
// confident verdict, keeping first-seen order.
func (e *Engine) check(rels []models.InferredRelation, n int) ([]models.InferredRelation, error) {
	if err := schema.ValidateEach(e.validator, rels); err != nil {
		return nil, err
	}

	type pair struct{ source, target int }
	index := make(map[pair]int, len(rels))
	out := make([]models.InferredRelation, 0, len(rels))
	for i, r := range rels {
		if r.Source > n || r.Target > n {
			return nil, fmt.Errorf("item %d: %s references an argument outside 1..%d: %w", i, r, n, schema.ErrValidation)
		}
		if !r.Criterion.Matches(r.Type) {
			return nil, fmt.Errorf("item %d: criterion %s does not belong to %s: %w", i, r.Criterion, r.Type, schema.ErrValidation)
		}
		r.Description = strings.TrimSpace(r.Description)

		p := pair{r.Source, r.Target}
		if j, ok := index[p]; ok {
			e.metrics.RecordRelationDiscarded("duplicate")
			if r.Confidence > out[j].Confidence {
				out[j] = r
			}
			continue
		}
		index[p] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// bound keeps the maxPairs most confident ATTACK and SUPPORT verdicts, in
// their original order. NONE verdicts are never persisted, so they neither
// count toward the bound nor displace a relation.
func (e *Engine) bound(rels []models.InferredRelation) []models.InferredRelation {
	if e.maxPairs <= 0 {
		return rels
	}
	var ranked []int
	for i, r := range rels {
		if r.Type != models.RelationNone {
			ranked = append(ranked, i)
		}
	}
	if len(ranked) <= e.maxPairs {
		return rels
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return rels[ranked[a]].Confidence > rels[ranked[b]].Confidence
	})
	dropped := make(map[int]bool, len(ranked)-e.maxPairs)
	for _, i := range ranked[e.maxPairs:] {
		dropped[i] = true
		e.metrics.RecordRelationDiscarded("over_limit")
	}

	out := make([]models.InferredRelation, 0, len(rels)-len(dropped))
	for i, r := range rels {
		if !dropped[i] {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) renderPrompt(args []models.AnalyzedArgument) (string, error) {
	items := make([]promptArgument, len(args))
	for i, a := range args {
		items[i] = promptArgument{
			ID:         a.TempID,
			Speaker:    a.Segment.Speaker,
			ShortName:  a.Analysis.ShortName,
			Scheme:     a.Analysis.Scheme,
			Premises:   a.Analysis.Premises,
			Conclusion: a.Analysis.Conclusion,
			Text:       a.Segment.Text,
		}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render arguments: %w", err)
	}

	var b strings.Builder
	b.WriteString("Arguments:\n")
	b.Write(raw)
	if n := len(args); e.maxPairs > 0 && n*(n-1) > e.maxPairs {
		fmt.Fprintf(&b, "\n\nReport at most %d ATTACK or SUPPORT verdicts, choosing the pairs you are most confident about.", e.maxPairs)
	}
	return b.String(), nil
}
