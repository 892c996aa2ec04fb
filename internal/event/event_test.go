package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Terminal(t *testing.T) {
	assert.True(t, Done().Terminal())
	assert.True(t, Error("agent_error", "boom").Terminal())
	assert.False(t, Answer("x").Terminal())
	assert.False(t, Ping().Terminal())
	assert.False(t, Steps(Step{ID: "0"}).Terminal())
}

func TestAnswer_Payload(t *testing.T) {
	ev := Answer("token")

	answer, ok := ev.Data["answer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "token", answer["text"])
}

func TestError_Payload(t *testing.T) {
	ev := Error("agent_error", "stage blew up")

	assert.Equal(t, "agent_error", ev.Data["type"])
	assert.Equal(t, "stage blew up", ev.Data["error"])
}

func TestSources_Payload(t *testing.T) {
	ev := Sources([]SourceRef{
		{Title: "Doc", Link: "https://a", Snippet: "s", Category: "academic", Index: 0, Credibility: 0.85},
	})

	items, ok := ev.Data["sources"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "academic", items[0]["source_type"])
	assert.Equal(t, 0.85, items[0]["credibility_score"])
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	ev := Steps(Step{ID: "1", Text: "[news] query", Status: StepPending, Detail: "Searching news sources..."})

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeSteps, got.Type)
}

func TestRedisNaming(t *testing.T) {
	assert.Equal(t, "research:stream:run-1", StreamChannel("run-1"))
	assert.Equal(t, "research:meta:run-1", MetaKey("run-1"))
}
