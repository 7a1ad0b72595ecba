package segment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
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
)

func utt(speaker, text string, start, end int64) models.Utterance {
	return models.Utterance{Speaker: speaker, Text: text, Start: start, End: end}
}

var exampleUtterances = []models.Utterance{
	utt("A", "X", 0, 1000),
	utt("A", "Y", 1000, 2000),
	utt("B", "Z", 2000, 3000),
}

func newMerger(o oracle.Oracle) (*Merger, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewMerger(o, m), m
}

func TestMerge_FallbackExample(t *testing.T) {
	o := mock.New().On(SchemaName, mock.Fail(errors.New("service unavailable")))
	merger, m := newMerger(o)

	res, err := merger.Merge(context.Background(), exampleUtterances)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Contains(t, res.Reason, "service unavailable")
	assert.Equal(t, []models.MergedSegment{
		{Speaker: "A", Text: "X Y", Start: 0, End: 2000},
		{Speaker: "B", Text: "Z", Start: 2000, End: 3000},
	}, res.Segments)
	assert.Equal(t, 1, o.Calls(SchemaName))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MergerFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleCalls.WithLabelValues(SchemaName, "error")))
}

func TestMerge_OracleGroupingAccepted(t *testing.T) {
	in := []models.Utterance{
		utt("A", "Cars pollute.", 0, 1000),
		utt("A", "Ban them downtown.", 1000, 2000),
		utt("B", "Shops would suffer.", 2000, 3000),
		utt("B", "Transit is poor.", 3000, 4000),
	}
	o := mock.New().On(SchemaName, mock.Reply(map[string]any{
		"steps": []string{"A argues for a ban", "B raises two objections"},
		"final_answer": []models.MergedSegment{
			// Sloppy whitespace and times; the merger recomputes both.
			{Speaker: "A", Text: "Cars pollute.  Ban them downtown.", Start: 5, End: 1999},
			{Speaker: "B", Text: "Shops would suffer.", Start: 2000, End: 3000},
			{Speaker: "B", Text: "Transit is poor.", Start: 3000, End: 4000},
		},
	}))
	merger, m := newMerger(o)

	res, err := merger.Merge(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, []models.MergedSegment{
		{Speaker: "A", Text: "Cars pollute. Ban them downtown.", Start: 0, End: 2000},
		{Speaker: "B", Text: "Shops would suffer.", Start: 2000, End: 3000},
		{Speaker: "B", Text: "Transit is poor.", Start: 3000, End: 4000},
	}, res.Segments)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MergerFallbacks))
}

func TestMerge_InterjectionStaysSeparate(t *testing.T) {
	in := []models.Utterance{
		utt("A", "Cars pollute.", 0, 1000),
		utt("B", "Right.", 1000, 1300),
		utt("A", "Ban them downtown.", 1300, 2300),
	}
	separate := []models.MergedSegment{
		{Speaker: "A", Text: "Cars pollute.", Start: 0, End: 1000},
		{Speaker: "B", Text: "Right.", Start: 1000, End: 1300},
		{Speaker: "A", Text: "Ban them downtown.", Start: 1300, End: 2300},
	}

	var system string
	o := mock.New().On(SchemaName, func(req oracle.Request) (any, error) {
		system = req.System
		return map[string]any{"steps": []string{}, "final_answer": separate}, nil
	})
	merger, _ := newMerger(o)

	res, err := merger.Merge(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, separate, res.Segments)
	assert.Contains(t, system, "Never merge utterances across it")
	assert.NotContains(t, system, "resumes")

	// Bridging the interjection is not a partition of the stream.
	o = mock.New().On(SchemaName, mock.Reply(map[string]any{
		"steps": []string{},
		"final_answer": []models.MergedSegment{
			{Speaker: "A", Text: "Cars pollute. Ban them downtown.", Start: 0, End: 2300},
			{Speaker: "B", Text: "Right.", Start: 1000, End: 1300},
		},
	}))
	merger, _ = newMerger(o)
	res, err = merger.Merge(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

func TestMerge_UnverifiableGroupingFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		segments []models.MergedSegment
	}{
		{"crosses speakers", []models.MergedSegment{
			{Speaker: "A", Text: "X Y Z", Start: 0, End: 3000},
		}},
		{"drops an utterance", []models.MergedSegment{
			{Speaker: "A", Text: "X Y", Start: 0, End: 2000},
		}},
		{"duplicates an utterance", []models.MergedSegment{
			{Speaker: "A", Text: "X", Start: 0, End: 1000},
			{Speaker: "A", Text: "X Y", Start: 0, End: 2000},
			{Speaker: "B", Text: "Z", Start: 2000, End: 3000},
		}},
		{"rewrites text", []models.MergedSegment{
			{Speaker: "A", Text: "X and Y", Start: 0, End: 2000},
			{Speaker: "B", Text: "Z", Start: 2000, End: 3000},
		}},
		{"fails validation", []models.MergedSegment{
			{Speaker: "", Text: "X Y", Start: 0, End: 2000},
			{Speaker: "B", Text: "Z", Start: 2000, End: 3000},
		}},
		{"empty", []models.MergedSegment{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := mock.New().On(SchemaName, mock.Reply(map[string]any{
				"steps":        []string{},
				"final_answer": tt.segments,
			}))
			merger, _ := newMerger(o)

			res, err := merger.Merge(context.Background(), exampleUtterances)
			require.NoError(t, err)
			assert.True(t, res.Fallback)
			assert.Equal(t, RunLengthMerge(exampleUtterances), res.Segments)
		})
	}
}

func TestMerge_NilOracle(t *testing.T) {
	merger, _ := newMerger(nil)
	res, err := merger.Merge(context.Background(), exampleUtterances)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Len(t, res.Segments, 2)
}

func TestMerge_Empty(t *testing.T) {
	o := mock.New()
	merger, _ := newMerger(o)
	res, err := merger.Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Segments)
	assert.False(t, res.Fallback)
	assert.Equal(t, 0, o.Calls(SchemaName))
}

func TestMerge_CanceledIsNotRecovered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	merger, _ := newMerger(mock.New().On(SchemaName, mock.Reply(map[string]any{})))

	_, err := merger.Merge(ctx, exampleUtterances)
	assert.ErrorIs(t, err, context.Canceled)
}

func randomUtterances(r *rand.Rand, n int) []models.Utterance {
	speakers := []string{"A", "B", "C"}
	out := make([]models.Utterance, n)
	var clock int64
	for i := range out {
		d := int64(r.Intn(3000) + 1)
		out[i] = utt(speakers[r.Intn(len(speakers))], fmt.Sprintf("w%d says %d", i, r.Intn(100)), clock, clock+d)
		clock += d
	}
	return out
}

func concatText(parts []string) string {
	return normalize(strings.Join(parts, " "))
}

func TestRunLengthMerge_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		in := randomUtterances(r, r.Intn(20))
		out := RunLengthMerge(in)

		var inTexts, outTexts []string
		for _, u := range in {
			inTexts = append(inTexts, u.Text)
		}
		for _, s := range out {
			outTexts = append(outTexts, s.Text)
		}
		// Completeness: nothing dropped or duplicated.
		if concatText(inTexts) != concatText(outTexts) {
			t.Fatalf("trial %d: text changed\n in: %q\nout: %q", trial, concatText(inTexts), concatText(outTexts))
		}

		// Purity and maximality: the output re-aligns to the input, and no
		// two neighbours share a speaker.
		if _, err := Align(in, out); err != nil {
			t.Fatalf("trial %d: output does not align: %v", trial, err)
		}
		for i := 1; i < len(out); i++ {
			if out[i].Speaker == out[i-1].Speaker {
				t.Fatalf("trial %d: neighbours %d and %d share speaker %s", trial, i-1, i, out[i].Speaker)
			}
		}
		if len(in) > 0 && (out[0].Start != in[0].Start || out[len(out)-1].End != in[len(in)-1].End) {
			t.Fatalf("trial %d: temporal span not preserved", trial)
		}
	}
}

func TestRunLengthMerge_Deterministic(t *testing.T) {
	in := randomUtterances(rand.New(rand.NewSource(7)), 30)
	assert.Equal(t, RunLengthMerge(in), RunLengthMerge(in))
}

func TestAlign_TrailingEmptyUtterance(t *testing.T) {
	in := []models.Utterance{
		utt("A", "X", 0, 1000),
		utt("A", "  ", 1000, 1100),
		utt("B", "Z", 1100, 2000),
	}
	out, err := Align(in, []models.MergedSegment{
		{Speaker: "A", Text: "X"},
		{Speaker: "B", Text: "Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1100), out[0].End)
}
