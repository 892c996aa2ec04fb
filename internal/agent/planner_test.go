package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/llm"
)

const validPlanJSON = `[
  {"query": "surface code error correction", "source_type": "academic", "rationale": "core theory"},
  {"query": "quantum computing announcements 2026", "source_type": "news", "rationale": "recent progress"},
  {"query": "quantum error correction overview", "source_type": "reference", "rationale": "background"}
]`

func TestPlanner_ValidPlan(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: validPlanJSON}, nil).Once()

	p := NewPlanner(client, "claude-sonnet-4-5", 2048)
	st := &model.State{Query: "quantum error correction", RunID: "run-1", MaxIterations: 3}
	sink := &captureSink{}

	require.NoError(t, p.Run(context.Background(), st, sink))

	require.Len(t, st.Plan, 3)
	assert.Equal(t, model.CategoryAcademic, st.Plan[0].Category)
	assert.Equal(t, 1, st.Iteration)

	steps := sink.byType(event.TypeSteps)
	require.Len(t, steps, 1)
	client.AssertExpectations(t)
}

func TestPlanner_StripsCodeFences(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: "```json\n" + validPlanJSON + "\n```"}, nil).Once()

	p := NewPlanner(client, "m", 2048)
	st := &model.State{Query: "q", MaxIterations: 3}

	require.NoError(t, p.Run(context.Background(), st, &captureSink{}))
	assert.Len(t, st.Plan, 3)
}

func TestPlanner_CorrectionThenValid(t *testing.T) {
	client := &mockLLM{}
	// First response violates the diversity floor, second is valid.
	monoculture := `[
	  {"query": "a", "source_type": "academic"},
	  {"query": "b", "source_type": "academic"},
	  {"query": "c", "source_type": "academic"}
	]`
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: monoculture}, nil).Once()
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: validPlanJSON}, nil).Once()

	p := NewPlanner(client, "m", 2048)
	st := &model.State{Query: "q", MaxIterations: 3}

	require.NoError(t, p.Run(context.Background(), st, &captureSink{}))

	assert.Len(t, st.Plan, 3)
	client.AssertNumberOfCalls(t, "Complete", 2)
}

func TestPlanner_DegeneratePlanAfterExhaustedCorrections(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: "not json at all"}, nil).Times(3)

	p := NewPlanner(client, "m", 2048)
	st := &model.State{Query: "what is love", MaxIterations: 3}

	require.NoError(t, p.Run(context.Background(), st, &captureSink{}))

	// Initial attempt plus two corrections, then the degenerate fallback.
	client.AssertNumberOfCalls(t, "Complete", 3)
	require.Len(t, st.Plan, 1)
	assert.Equal(t, "what is love", st.Plan[0].Query)
	assert.Equal(t, model.CategoryGeneral, st.Plan[0].Category)
}

func TestPlanner_CompletionErrorFallsBack(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	p := NewPlanner(client, "m", 2048)
	st := &model.State{Query: "q", MaxIterations: 3}

	require.NoError(t, p.Run(context.Background(), st, &captureSink{}))
	require.Len(t, st.Plan, 1)
	assert.Equal(t, model.CategoryGeneral, st.Plan[0].Category)
}

func TestPlanner_ReplanIncludesCritique(t *testing.T) {
	client := &mockLLM{}
	var captured llm.Request
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		captured = req
		return true
	})).Return(&llm.Response{Text: validPlanJSON}, nil).Once()

	p := NewPlanner(client, "m", 2048)
	st := &model.State{
		Query:         "q",
		Iteration:     1,
		MaxIterations: 3,
		Critique: &model.Critique{
			NeedsRefinement: true,
			Gaps:            []string{"no coverage of hardware"},
			Suggestions:     []string{"add vendor roadmaps"},
		},
	}

	require.NoError(t, p.Run(context.Background(), st, &captureSink{}))

	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content, "no coverage of hardware")
	assert.Contains(t, captured.Messages[0].Content, "add vendor roadmaps")
	assert.Equal(t, 2, st.Iteration)
}

func TestParsePlan_UnknownCategoryCoercesToGeneral(t *testing.T) {
	plan, err := parsePlan(`[
	  {"query": "a", "source_type": "blog"},
	  {"query": "b", "source_type": "academic"},
	  {"query": "c", "source_type": "news"}
	]`)

	require.NoError(t, err)
	assert.Equal(t, model.CategoryGeneral, plan[0].Category)
}

func TestParsePlan_CountBounds(t *testing.T) {
	_, err := parsePlan(`[{"query": "a", "source_type": "academic"}, {"query": "b", "source_type": "news"}]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 3-5")

	_, err = parsePlan(`[
	  {"query":"a","source_type":"academic"},{"query":"b","source_type":"news"},
	  {"query":"c","source_type":"reference"},{"query":"d","source_type":"general"},
	  {"query":"e","source_type":"news"},{"query":"f","source_type":"news"}
	]`)
	require.Error(t, err)
}
