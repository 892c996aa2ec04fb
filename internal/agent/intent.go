package agent

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/research-agent/pkg/llm"
)

// Intent is the classified disposition of a user message.
type Intent string

const (
	IntentResearch Intent = "research"
	IntentChat     Intent = "chat"
)

// greetingPattern short-circuits obvious small talk without a model call.
var greetingPattern = regexp.MustCompile(
	`^(hi|hey|hello|howdy|yo|sup|thanks|thank you|bye|goodbye|good morning|good night|how are you|what('s|s) up|what can you do|tell me a joke)\b`,
)

// Classifier decides whether a message warrants the research pipeline or a
// plain chat reply.
type Classifier struct {
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewClassifier creates an intent classifier.
func NewClassifier(client llm.Client, model string, maxTokens int64) *Classifier {
	return &Classifier{llm: client, model: model, maxTokens: maxTokens}
}

// Classify returns the intent for a message. Empty input is chat; short
// greetings match without a model call; classification failure fails open to
// research, since a wasted pipeline beats a dropped question.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return IntentChat
	}
	if len(text) < 80 && greetingPattern.MatchString(text) {
		return IntentChat
	}

	temp := 0.0
	resp, err := c.llm.Complete(ctx, llm.Request{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      intentSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: message}},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Warn("intent: classification failed, defaulting to research", zap.Error(err))
		return IntentResearch
	}
	if strings.Contains(strings.ToLower(resp.Text), "research") {
		return IntentResearch
	}
	return IntentChat
}
