package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/llm"
)

// maxPlanCorrections bounds how many times the planner re-asks the model for
// a rule-conforming plan before degrading to the single-query fallback.
const maxPlanCorrections = 2

const plannerTemperature = 0.3

// Planner turns the query (and, on re-plan, the prior critique) into 3-5
// categorized sub-queries.
type Planner struct {
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewPlanner creates a planner stage.
func NewPlanner(client llm.Client, model string, maxTokens int64) *Planner {
	return &Planner{llm: client, model: model, maxTokens: maxTokens}
}

// rawSubQuery is the planner's wire shape before validation.
type rawSubQuery struct {
	Query      string `json:"query"`
	SourceType string `json:"source_type"`
	Rationale  string `json:"rationale"`
}

// Run generates the plan, emits the pending plan steps, and advances the
// iteration counter. A plan that cannot be parsed or corrected degrades to a
// single general sub-query echoing the raw query; it never fails the run.
func (p *Planner) Run(ctx context.Context, st *model.State, sink event.Sink) error {
	userContent := fmt.Sprintf("Research query: %s", st.Query)
	if st.Critique != nil && st.Iteration > 0 {
		userContent = fmt.Sprintf(replanTemplate,
			st.Query,
			joinOr(st.Critique.Gaps, "None"),
			joinOr(st.Critique.DiversityIssues, "None"),
			joinOr(st.Critique.Suggestions, "None"),
			st.Iteration, st.MaxIterations,
		)
	}

	messages := []llm.Message{{Role: "user", Content: userContent}}
	plan := p.generate(ctx, messages)

	if plan == nil {
		zap.L().Warn("planner: falling back to degenerate plan",
			zap.String("run_id", st.RunID),
		)
		plan = []model.SubQuery{{
			Query:     st.Query,
			Category:  model.CategoryGeneral,
			Rationale: "Fallback to original query",
		}}
	}

	st.Plan = plan
	st.Iteration++

	steps := make([]event.Step, len(plan))
	for i, sq := range plan {
		steps[i] = event.Step{
			ID:     strconv.Itoa(i),
			Text:   fmt.Sprintf("[%s] %s", sq.Category, sq.Query),
			Status: event.StepPending,
		}
	}
	if err := sink.Send(ctx, event.Steps(steps...)); err != nil {
		return eris.Wrap(err, "agent: emit plan steps")
	}

	zap.L().Info("planner: plan generated",
		zap.String("run_id", st.RunID),
		zap.Int("sub_queries", len(plan)),
		zap.Int("iteration", st.Iteration),
	)
	return nil
}

// generate asks the model for a plan, re-asking up to maxPlanCorrections
// times when the response breaks a structural rule. Returns nil when no
// acceptable plan was produced.
func (p *Planner) generate(ctx context.Context, messages []llm.Message) []model.SubQuery {
	temp := plannerTemperature
	for attempt := 0; ; attempt++ {
		resp, err := p.llm.Complete(ctx, llm.Request{
			Model:       p.model,
			MaxTokens:   p.maxTokens,
			System:      plannerSystemPrompt,
			Messages:    messages,
			Temperature: &temp,
		})
		if err != nil {
			zap.L().Error("planner: completion failed", zap.Error(err))
			return nil
		}

		plan, verr := parsePlan(resp.Text)
		if verr == nil {
			return plan
		}
		zap.L().Warn("planner: rejected plan",
			zap.Int("attempt", attempt),
			zap.Error(verr),
		)
		if attempt >= maxPlanCorrections {
			return nil
		}
		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Text},
			llm.Message{Role: "user", Content: fmt.Sprintf(planCorrectionTemplate, verr.Error())},
		)
	}
}

// parsePlan decodes and validates a plan: 3-5 entries spanning at least two
// categories. Unknown category strings coerce to general before the
// diversity check.
func parsePlan(raw string) ([]model.SubQuery, error) {
	var entries []rawSubQuery
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &entries); err != nil {
		return nil, eris.Wrap(err, "agent: parse plan JSON")
	}
	if len(entries) < 3 || len(entries) > 5 {
		return nil, eris.Errorf("agent: plan has %d sub-queries, want 3-5", len(entries))
	}

	plan := make([]model.SubQuery, len(entries))
	categories := map[model.Category]bool{}
	for i, e := range entries {
		if e.Query == "" {
			return nil, eris.Errorf("agent: sub-query %d has empty query", i)
		}
		cat := model.Category(e.SourceType)
		if !cat.Known() {
			cat = model.CategoryGeneral
		}
		categories[cat] = true
		plan[i] = model.SubQuery{Query: e.Query, Category: cat, Rationale: e.Rationale}
	}
	if len(categories) < 2 {
		return nil, eris.New("agent: plan uses a single source type, want at least two")
	}
	return plan, nil
}
