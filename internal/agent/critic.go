package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/llm"
)

// criticDraftLimit caps how much of the draft the critic sees.
const criticDraftLimit = 4000

const criticTemperature = 0.1

// Critic scores the draft and decides refine versus finalize.
type Critic struct {
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewCritic creates a critic stage.
func NewCritic(client llm.Client, model string, maxTokens int64) *Critic {
	return &Critic{llm: client, model: model, maxTokens: maxTokens}
}

// Run evaluates the draft. A malformed critique response degrades to the
// accept-as-is default rather than failing. Hitting the iteration cap
// force-overrides needs_refinement so the loop always terminates.
func (c *Critic) Run(ctx context.Context, st *model.State, sink event.Sink) error {
	if err := sink.Send(ctx, event.Steps(event.Step{
		ID:     "critique",
		Text:   fmt.Sprintf("Self-critiquing (iteration %d)...", st.Iteration),
		Status: event.StepPending,
	})); err != nil {
		return eris.Wrap(err, "agent: emit critique step")
	}

	draft := truncate(st.Draft, criticDraftLimit)
	userContent := fmt.Sprintf(
		"Original query: %s\n\nCurrent iteration: %d of %d\nSource types used: %s\nNumber of documents: %d\n\nDraft report:\n%s",
		st.Query, st.Iteration, st.MaxIterations,
		categoriesUsed(st.Documents), len(st.Documents), draft,
	)

	critique := c.evaluate(ctx, userContent)

	if st.Iteration >= st.MaxIterations && critique.NeedsRefinement {
		zap.L().Info("critic: max iterations reached, finalizing",
			zap.String("run_id", st.RunID),
			zap.Int("max_iterations", st.MaxIterations),
		)
		critique.NeedsRefinement = false
	}

	st.Critique = critique
	if !critique.NeedsRefinement {
		st.FinalReport = st.Draft
	}

	status := event.StepCompleted
	if critique.NeedsRefinement {
		status = event.StepPending
	}
	if err := sink.Send(ctx, event.Steps(event.Step{
		ID:     "critique",
		Text:   fmt.Sprintf("Critique: %s (score: %.0f%%)", critique.Summary, critique.OverallScore*100),
		Status: status,
		Detail: fmt.Sprintf("Gaps: %s", joinOr(critique.Gaps, "None")),
	})); err != nil {
		return eris.Wrap(err, "agent: emit critique step")
	}

	zap.L().Info("critic: verdict",
		zap.String("run_id", st.RunID),
		zap.Bool("needs_refinement", critique.NeedsRefinement),
		zap.Float64("score", critique.OverallScore),
	)
	return nil
}

// acceptDefault is the critique used when the model's response cannot be
// parsed: accept the draft with a passing score.
func acceptDefault() *model.Critique {
	return &model.Critique{
		NeedsRefinement: false,
		OverallScore:    0.7,
		Summary:         "Could not evaluate — accepting draft as-is.",
	}
}

func (c *Critic) evaluate(ctx context.Context, userContent string) *model.Critique {
	temp := criticTemperature
	resp, err := c.llm.Complete(ctx, llm.Request{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      criticSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: userContent}},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Error("critic: completion failed", zap.Error(err))
		return acceptDefault()
	}

	var critique model.Critique
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &critique); err != nil {
		zap.L().Error("critic: failed to parse response", zap.Error(err))
		return acceptDefault()
	}
	return &critique
}

// categoriesUsed lists the distinct effective categories across documents,
// sorted for stable prompts.
func categoriesUsed(docs []model.RetrievedDocument) string {
	seen := map[string]bool{}
	for _, d := range docs {
		seen[string(d.Category)] = true
	}
	if len(seen) == 0 {
		return "none"
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return strings.Join(cats, ", ")
}
