package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/oracle"
)

func TestOracle_ReplyRoundTrips(t *testing.T) {
	o := New().On("analysis", Reply(models.ArgumentAnalysis{
		Scheme:     "Argument from Example",
		Premises:   []string{"p"},
		Conclusion: "c",
	}))

	var out models.ArgumentAnalysis
	require.NoError(t, o.Complete(context.Background(), oracle.Request{Name: "analysis"}, &out))
	assert.Equal(t, "Argument from Example", out.Scheme)
	assert.Equal(t, 1, o.Calls("analysis"))
}

func TestOracle_UnknownSchema(t *testing.T) {
	var out models.ArgumentAnalysis
	err := New().Complete(context.Background(), oracle.Request{Name: "nope"}, &out)
	assert.True(t, errors.Is(err, oracle.ErrNoParseableResult))
}

func TestOracle_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New().On("x", Reply(map[string]any{}))
	var out struct{}
	assert.ErrorIs(t, o.Complete(ctx, oracle.Request{Name: "x"}, &out), context.Canceled)
	assert.Equal(t, 0, o.Calls("x"))
}

func TestHeuristic_Analysis(t *testing.T) {
	o := NewHeuristic()
	seg := models.MergedSegment{Text: "Taxes fund schools. Schools matter. So taxes are good.", Speaker: "A"}

	var out models.ArgumentAnalysis
	require.NoError(t, o.Complete(context.Background(), oracle.Request{Name: SchemaArgumentAnalysis, Payload: seg}, &out))
	assert.Equal(t, []string{"Taxes fund schools", "Schools matter"}, out.Premises)
	assert.Equal(t, "So taxes are good", out.Conclusion)
	assert.NotEmpty(t, out.CriticalQuestions)
}

func TestHeuristic_RelationsAndSegmentation(t *testing.T) {
	o := NewHeuristic()
	args := []models.AnalyzedArgument{
		{TempID: 1, Segment: models.MergedSegment{Speaker: "A"}},
		{TempID: 2, Segment: models.MergedSegment{Speaker: "A"}},
		{TempID: 3, Segment: models.MergedSegment{Speaker: "B"}},
	}
	var out struct {
		Relations []models.InferredRelation `json:"relations"`
	}
	require.NoError(t, o.Complete(context.Background(), oracle.Request{Name: SchemaRelations, Payload: args}, &out))
	require.Len(t, out.Relations, 1)
	assert.Equal(t, 3, out.Relations[0].Source)
	assert.Equal(t, 2, out.Relations[0].Target)

	var seg struct{}
	err := o.Complete(context.Background(), oracle.Request{Name: SchemaMergedSegments}, &seg)
	assert.True(t, errors.Is(err, oracle.ErrNoParseableResult))
}
