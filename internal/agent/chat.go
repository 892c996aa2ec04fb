package agent

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/pkg/llm"
)

const chatTemperature = 0.7

// Chat streams a single conversational reply, bypassing the research
// pipeline. Used for quick mode and for chat-intent messages in research
// mode.
type Chat struct {
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewChat creates the chat path.
func NewChat(client llm.Client, model string, maxTokens int64) *Chat {
	return &Chat{llm: client, model: model, maxTokens: maxTokens}
}

// Run streams the reply as answer events and finishes with done. It touches
// no documents and no checkpoints.
func (c *Chat) Run(ctx context.Context, message string, sink event.Sink) error {
	temp := chatTemperature
	stream, err := c.llm.Stream(ctx, llm.Request{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      chatSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: message}},
		Temperature: &temp,
	})
	if err != nil {
		return eris.Wrap(err, "agent: open chat stream")
	}
	defer stream.Close() //nolint:errcheck

	for stream.Next() {
		token := stream.Text()
		if token == "" {
			continue
		}
		if err := sink.Send(ctx, event.Answer(token)); err != nil {
			return eris.Wrap(err, "agent: emit chat token")
		}
	}
	if err := stream.Err(); err != nil {
		return eris.Wrap(err, "agent: chat stream")
	}
	return eris.Wrap(sink.Send(ctx, event.Done()), "agent: emit done")
}
