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

func TestCritic_AcceptsDraft(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: `{"needs_refinement": false, "overall_score": 0.9, "summary": "solid"}`}, nil).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{Query: "q", Draft: "draft body", Iteration: 1, MaxIterations: 3}
	sink := &captureSink{}

	require.NoError(t, c.Run(context.Background(), st, sink))

	require.NotNil(t, st.Critique)
	assert.False(t, st.Critique.NeedsRefinement)
	assert.Equal(t, 0.9, st.Critique.OverallScore)
	assert.Equal(t, "draft body", st.FinalReport)
	assert.Len(t, sink.byType(event.TypeSteps), 2)
}

func TestCritic_RequestsRefinement(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: `{"needs_refinement": true, "overall_score": 0.5, "gaps": ["hardware angle missing"], "summary": "thin"}`}, nil).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{Query: "q", Draft: "draft", Iteration: 1, MaxIterations: 3}

	require.NoError(t, c.Run(context.Background(), st, &captureSink{}))

	assert.True(t, st.Critique.NeedsRefinement)
	assert.Empty(t, st.FinalReport)
}

func TestCritic_MalformedResponseAcceptsDefault(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: "I think it needs work"}, nil).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{Query: "q", Draft: "draft", Iteration: 1, MaxIterations: 3}

	require.NoError(t, c.Run(context.Background(), st, &captureSink{}))

	assert.False(t, st.Critique.NeedsRefinement)
	assert.Equal(t, 0.7, st.Critique.OverallScore)
	assert.Equal(t, "draft", st.FinalReport)
}

func TestCritic_CompletionErrorAcceptsDefault(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{Query: "q", Draft: "draft", Iteration: 1, MaxIterations: 3}

	require.NoError(t, c.Run(context.Background(), st, &captureSink{}))
	assert.False(t, st.Critique.NeedsRefinement)
	assert.Equal(t, "draft", st.FinalReport)
}

func TestCritic_IterationCapOverridesRefinement(t *testing.T) {
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&llm.Response{Text: `{"needs_refinement": true, "overall_score": 0.4, "summary": "weak"}`}, nil).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{Query: "q", Draft: "draft", Iteration: 3, MaxIterations: 3}

	require.NoError(t, c.Run(context.Background(), st, &captureSink{}))

	// Verdict said refine, but the cap forces finalize.
	assert.False(t, st.Critique.NeedsRefinement)
	assert.Equal(t, "draft", st.FinalReport)
	assert.Equal(t, 0.4, st.Critique.OverallScore)
}

func TestCritic_PromptIncludesSourceTypesAndCap(t *testing.T) {
	var captured llm.Request
	client := &mockLLM{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		captured = req
		return true
	})).Return(&llm.Response{Text: `{"needs_refinement": false, "overall_score": 0.8}`}, nil).Once()

	c := NewCritic(client, "m", 2048)
	st := &model.State{
		Query: "q", Draft: "draft", Iteration: 2, MaxIterations: 3,
		Documents: []model.RetrievedDocument{
			{Category: model.CategoryNews},
			{Category: model.CategoryAcademic},
			{Category: model.CategoryNews},
		},
	}

	require.NoError(t, c.Run(context.Background(), st, &captureSink{}))

	prompt := captured.Messages[0].Content
	assert.Contains(t, prompt, "academic, news")
	assert.Contains(t, prompt, "Current iteration: 2 of 3")
	assert.Contains(t, prompt, "Number of documents: 3")
}
