package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/llm"
)

// documentExcerptLimit caps how much of each document reaches the synthesis
// prompt, keeping large collections inside the context window.
const documentExcerptLimit = 1500

const synthesizerTemperature = 0.2

// Synthesizer turns the document collection into a streamed Markdown report
// with a trailing machine-readable conflicts block.
type Synthesizer struct {
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewSynthesizer creates a synthesizer stage.
func NewSynthesizer(client llm.Client, model string, maxTokens int64) *Synthesizer {
	return &Synthesizer{llm: client, model: model, maxTokens: maxTokens}
}

// Run streams the draft, re-emitting every text increment as an answer event
// as it arrives. With no documents it short-circuits to a fixed report and
// never calls the model. The conflicts block parse is best-effort: a missing
// or broken block yields an empty conflict list, not an error.
func (s *Synthesizer) Run(ctx context.Context, st *model.State, sink event.Sink) error {
	if len(st.Documents) == 0 {
		st.Draft = emptyDocsReport
		st.Conflicts = nil
		st.SourcesMeta = nil
		zap.L().Warn("synthesizer: no documents, emitting fixed report",
			zap.String("run_id", st.RunID),
		)
		return eris.Wrap(sink.Send(ctx, event.Answer(st.Draft)), "agent: emit empty-docs report")
	}

	docTexts := make([]string, len(st.Documents))
	meta := make([]model.SourceMeta, len(st.Documents))
	for i, doc := range st.Documents {
		content := truncate(doc.Content, documentExcerptLimit)
		docTexts[i] = fmt.Sprintf(documentTemplate,
			i+1, doc.Title, doc.Category, doc.Credibility*100, doc.Origin, content)
		meta[i] = model.SourceMeta{
			Origin:      doc.Origin,
			Title:       doc.Title,
			Category:    doc.Category,
			Credibility: doc.Credibility,
		}
	}

	userContent := fmt.Sprintf("Research query: %s\n\nRetrieved documents (%d total):\n\n%s",
		st.Query, len(st.Documents), strings.Join(docTexts, "\n\n"))

	if err := sink.Send(ctx, event.Steps(event.Step{
		ID: "synthesis", Text: "Synthesizing report...", Status: event.StepPending,
	})); err != nil {
		return eris.Wrap(err, "agent: emit synthesis step")
	}

	temp := synthesizerTemperature
	stream, err := s.llm.Stream(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      synthesizerSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: userContent}},
		Temperature: &temp,
	})
	if err != nil {
		return eris.Wrap(err, "agent: open synthesis stream")
	}
	defer stream.Close() //nolint:errcheck

	var draft strings.Builder
	for stream.Next() {
		token := stream.Text()
		if token == "" {
			continue
		}
		draft.WriteString(token)
		if err := sink.Send(ctx, event.Answer(token)); err != nil {
			return eris.Wrap(err, "agent: emit answer token")
		}
	}
	if err := stream.Err(); err != nil {
		return eris.Wrap(err, "agent: synthesis stream")
	}

	if err := sink.Send(ctx, event.Steps(event.Step{
		ID: "synthesis", Text: "Synthesizing report...", Status: event.StepCompleted,
	})); err != nil {
		return eris.Wrap(err, "agent: emit synthesis step")
	}

	st.Draft = draft.String()
	st.Conflicts = extractConflicts(st.Draft)
	st.SourcesMeta = meta

	zap.L().Info("synthesizer: draft produced",
		zap.String("run_id", st.RunID),
		zap.Int("chars", len(st.Draft)),
		zap.Int("conflicts", len(st.Conflicts)),
	)
	return nil
}

// extractConflicts parses the trailing ```json block of the draft. Anything
// that doesn't decode cleanly degrades to no conflicts.
func extractConflicts(draft string) []model.Conflict {
	idx := strings.LastIndex(draft, "```json")
	if idx < 0 {
		return nil
	}
	block := draft[idx+len("```json"):]
	if end := strings.Index(block, "```"); end >= 0 {
		block = block[:end]
	}

	var payload struct {
		Conflicts []model.Conflict `json:"conflicts"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &payload); err != nil {
		zap.L().Warn("synthesizer: could not extract conflicts block", zap.Error(err))
		return nil
	}
	return payload.Conflicts
}
