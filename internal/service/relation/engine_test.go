package relation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/oracle/mock"
	"ai-debate-graph-service/internal/schema"
)

func analyzed(n int) []models.AnalyzedArgument {
	out := make([]models.AnalyzedArgument, n)
	for i := range out {
		out[i] = models.AnalyzedArgument{
			TempID:  i + 1,
			Segment: models.MergedSegment{Speaker: string(rune('A' + i%2)), Text: fmt.Sprintf("text %d", i+1)},
			Analysis: models.ArgumentAnalysis{
				Scheme:     "Argument from Consequences",
				Premises:   []string{fmt.Sprintf("premise %d", i+1)},
				Conclusion: fmt.Sprintf("conclusion %d", i+1),
				ShortName:  fmt.Sprintf("arg %d", i+1),
			},
		}
	}
	return out
}

func rel(src, tgt int, typ models.RelationType, c models.Criterion, conf float64) models.InferredRelation {
	return models.InferredRelation{Source: src, Target: tgt, Type: typ, Criterion: c, Confidence: conf, Description: "d"}
}

func relReply(rels ...models.InferredRelation) mock.Handler {
	return mock.Reply(map[string]any{"relations": rels})
}

func newEngine(o oracle.Oracle, maxPairs int) (*Engine, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewEngine(o, maxPairs, m), m
}

func TestInfer_KeepsTypedVerdicts(t *testing.T) {
	want := []models.InferredRelation{
		rel(1, 3, models.RelationAttack, models.CriterionRebuttal, 0.9),
		rel(2, 1, models.RelationSupport, models.CriterionEvidentialSupport, 0.7),
		rel(3, 2, models.RelationNone, models.CriterionNoRelation, 0.6),
	}
	o := mock.New().On(SchemaName, relReply(want...))
	e, m := newEngine(o, 0)

	got, err := e.Infer(context.Background(), analyzed(3))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, o.Calls(SchemaName))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelationsInferred.WithLabelValues("NONE")))
}

func TestInfer_FewerThanTwoArgumentsSkipsOracle(t *testing.T) {
	o := mock.New()
	e, _ := newEngine(o, 0)
	for _, n := range []int{0, 1} {
		got, err := e.Infer(context.Background(), analyzed(n))
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, o.Calls(SchemaName))
}

func TestInfer_HardFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler mock.Handler
		check   func(error) bool
	}{
		{"oracle down", mock.Fail(errors.New("timeout")), func(err error) bool { return !oracle.IsSchemaFailure(err) }},
		{"no result", mock.Fail(oracle.ErrNoParseableResult), oracle.IsSchemaFailure},
		{"self relation", relReply(rel(2, 2, models.RelationAttack, models.CriterionRebuttal, 0.5)), isValidation},
		{"id out of range", relReply(rel(1, 4, models.RelationAttack, models.CriterionRebuttal, 0.5)), isValidation},
		{"zero id", relReply(rel(0, 1, models.RelationAttack, models.CriterionRebuttal, 0.5)), isValidation},
		{"criterion mismatch", relReply(rel(1, 2, models.RelationSupport, models.CriterionRebuttal, 0.5)), isValidation},
		{"confidence out of range", relReply(rel(1, 2, models.RelationAttack, models.CriterionRebuttal, 1.5)), isValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(mock.New().On(SchemaName, tt.handler), 0)
			got, err := e.Infer(context.Background(), analyzed(3))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, tt.check(err), "unexpected error class: %v", err)
		})
	}
}

func isValidation(err error) bool { return errors.Is(err, schema.ErrValidation) }

func TestInfer_DuplicatePairsKeepMostConfident(t *testing.T) {
	o := mock.New().On(SchemaName, relReply(
		rel(1, 2, models.RelationAttack, models.CriterionRebuttal, 0.4),
		rel(2, 3, models.RelationSupport, models.CriterionInferentialBacking, 0.5),
		rel(1, 2, models.RelationSupport, models.CriterionPremiseReinforcement, 0.8),
	))
	e, m := newEngine(o, 0)

	got, err := e.Infer(context.Background(), analyzed(3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RelationSupport, got[0].Type)
	assert.Equal(t, 0.8, got[0].Confidence)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelationsDiscarded.WithLabelValues("duplicate")))
}

func TestInfer_MaxPairsBound(t *testing.T) {
	var prompt string
	o := mock.New().On(SchemaName, func(req oracle.Request) (any, error) {
		prompt = req.Prompt
		return map[string]any{"relations": []models.InferredRelation{
			rel(1, 2, models.RelationAttack, models.CriterionRebuttal, 0.3),
			rel(2, 3, models.RelationAttack, models.CriterionUndercutting, 0.9),
			rel(3, 1, models.RelationSupport, models.CriterionEvidentialSupport, 0.6),
		}}, nil
	})
	e, m := newEngine(o, 2)

	got, err := e.Infer(context.Background(), analyzed(3))
	require.NoError(t, err)
	assert.Contains(t, prompt, "at most 2 ATTACK or SUPPORT verdicts")
	assert.Equal(t, []models.InferredRelation{
		rel(2, 3, models.RelationAttack, models.CriterionUndercutting, 0.9),
		rel(3, 1, models.RelationSupport, models.CriterionEvidentialSupport, 0.6),
	}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelationsDiscarded.WithLabelValues("over_limit")))
}

func TestInfer_MaxPairsIgnoresNoneVerdicts(t *testing.T) {
	o := mock.New().On(SchemaName, relReply(
		rel(1, 2, models.RelationNone, models.CriterionNoRelation, 0.95),
		rel(2, 1, models.RelationAttack, models.CriterionRebuttal, 0.6),
		rel(2, 3, models.RelationSupport, models.CriterionEvidentialSupport, 0.4),
	))
	e, m := newEngine(o, 1)

	got, err := e.Infer(context.Background(), analyzed(3))
	require.NoError(t, err)
	assert.Equal(t, []models.InferredRelation{
		rel(1, 2, models.RelationNone, models.CriterionNoRelation, 0.95),
		rel(2, 1, models.RelationAttack, models.CriterionRebuttal, 0.6),
	}, got)
	require.Len(t, models.Graphable(got), 1)
	assert.Equal(t, models.RelationAttack, models.Graphable(got)[0].Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelationsDiscarded.WithLabelValues("over_limit")))
}

func TestInfer_PromptCarriesAllArguments(t *testing.T) {
	var req oracle.Request
	o := mock.New().On(SchemaName, func(r oracle.Request) (any, error) {
		req = r
		return map[string]any{"relations": []models.InferredRelation{}}, nil
	})
	e, _ := newEngine(o, 0)

	_, err := e.Infer(context.Background(), analyzed(4))
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		assert.Contains(t, req.Prompt, fmt.Sprintf(`"id": %d`, i))
		assert.Contains(t, req.Prompt, fmt.Sprintf("conclusion %d", i))
	}
	assert.False(t, strings.Contains(req.Prompt, "at most"))
	assert.Contains(t, req.System, "UNDERCUTTING")
}

func TestInfer_RejectsMisnumberedInput(t *testing.T) {
	args := analyzed(3)
	args[1].TempID = 7
	e, _ := newEngine(mock.New(), 0)
	_, err := e.Infer(context.Background(), args)
	assert.ErrorIs(t, err, models.ErrOutOfOrder)
}
