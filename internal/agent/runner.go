// Package agent implements the research pipeline: intent classification,
// planning, concurrent retrieval, synthesis, critique, and the refinement
// loop that ties them together.
package agent

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/checkpoint"
	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/memory"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/source"
	"github.com/sells-group/research-agent/pkg/llm"
)

// Options configures the runner's model usage and loop bounds.
type Options struct {
	Model         string
	MaxTokens     int64
	MaxResults    int
	MaxIterations int
}

// Runner owns the stage instances and drives one run end to end.
type Runner struct {
	classifier  *Classifier
	chat        *Chat
	planner     *Planner
	retriever   *Retriever
	synthesizer *Synthesizer
	critic      *Critic

	checkpoints checkpoint.Store
	memory      memory.Store

	maxIterations int
}

// NewRunner wires the stages over shared dependencies.
func NewRunner(client llm.Client, router *source.Router, checkpoints checkpoint.Store, mem memory.Store, opts Options) *Runner {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	return &Runner{
		classifier:    NewClassifier(client, opts.Model, 16),
		chat:          NewChat(client, opts.Model, opts.MaxTokens),
		planner:       NewPlanner(client, opts.Model, opts.MaxTokens),
		retriever:     NewRetriever(router, opts.MaxResults),
		synthesizer:   NewSynthesizer(client, opts.Model, opts.MaxTokens),
		critic:        NewCritic(client, opts.Model, opts.MaxTokens),
		checkpoints:   checkpoints,
		memory:        mem,
		maxIterations: opts.MaxIterations,
	}
}

// Run executes a submitted run against the sink. Quick mode always chats;
// research mode classifies first. The caller owns the sink and closes it
// after Run returns. A returned error has already been reported on the
// stream as a terminal error event, and the run's status reflects the
// outcome either way.
func (r *Runner) Run(ctx context.Context, run *model.Run, maxIterations int, sink event.Sink) error {
	err := r.execute(ctx, run, maxIterations, sink)
	run.Status = model.RunStatusCompleted
	if err != nil {
		run.Status = model.RunStatusFailed
	}
	run.UpdatedAt = time.Now().UTC()
	return err
}

func (r *Runner) execute(ctx context.Context, run *model.Run, maxIterations int, sink event.Sink) error {
	if run.Mode == model.ModeQuick {
		return r.runChat(ctx, run, sink)
	}

	if intent := r.classifier.Classify(ctx, run.Query); intent == IntentChat {
		zap.L().Info("runner: chat intent, skipping pipeline",
			zap.String("run_id", run.ID),
		)
		return r.runChat(ctx, run, sink)
	}
	return r.runPipeline(ctx, run, maxIterations, sink)
}

func (r *Runner) runChat(ctx context.Context, run *model.Run, sink event.Sink) error {
	if err := r.chat.Run(ctx, run.Query, sink); err != nil {
		r.reportFailure(ctx, run.ID, sink, err)
		return err
	}
	return nil
}

// runPipeline drives the stage machine. After every stage the state is
// checkpointed under the session id, so a crashed run resumes at its last
// committed stage instead of repeating paid work.
func (r *Runner) runPipeline(ctx context.Context, run *model.Run, maxIterations int, sink event.Sink) error {
	st, err := r.restoreOrInit(ctx, run, maxIterations)
	if err != nil {
		r.reportFailure(ctx, run.ID, sink, err)
		return err
	}

	for st.Phase != model.PhaseFinalized {
		var stageErr error
		switch st.Phase {
		case model.PhasePlanning:
			stageErr = r.planner.Run(ctx, st, sink)
			st.Phase = model.PhaseRetrieving
		case model.PhaseRetrieving:
			stageErr = r.retriever.Run(ctx, st, sink)
			st.Phase = model.PhaseSynthesizing
		case model.PhaseSynthesizing:
			stageErr = r.synthesizer.Run(ctx, st, sink)
			st.Phase = model.PhaseCritiquing
		case model.PhaseCritiquing:
			stageErr = r.critic.Run(ctx, st, sink)
			if st.Critique != nil && st.Critique.NeedsRefinement {
				st.Phase = model.PhasePlanning
			} else {
				st.Phase = model.PhaseFinalized
			}
		default:
			stageErr = eris.Errorf("agent: unexpected phase %q", st.Phase)
		}

		if stageErr != nil {
			st.Phase = model.PhaseFailed
			r.commit(ctx, st)
			r.reportFailure(ctx, run.ID, sink, stageErr)
			return stageErr
		}
		r.commit(ctx, st)
	}

	r.persistOutcome(ctx, st)

	// A finalized query has nothing to resume; clear its checkpoint so the
	// session doesn't hold a stale record.
	if err := r.checkpoints.Delete(ctx, st.SessionID); err != nil {
		zap.L().Error("runner: checkpoint delete failed",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
	}

	if err := sink.Send(ctx, event.Done()); err != nil {
		return eris.Wrap(err, "agent: emit done")
	}
	zap.L().Info("runner: run finalized",
		zap.String("run_id", run.ID),
		zap.Int("iterations", st.Iteration),
		zap.Int("documents", len(st.Documents)),
	)
	return nil
}

// restoreOrInit loads the session's checkpoint when it matches this query
// and was interrupted mid-run; anything else starts a fresh state.
func (r *Runner) restoreOrInit(ctx context.Context, run *model.Run, maxIterations int) (*model.State, error) {
	if maxIterations <= 0 {
		maxIterations = r.maxIterations
	}

	prev, err := r.checkpoints.Load(ctx, run.SessionID)
	if err != nil {
		return nil, eris.Wrap(err, "agent: load checkpoint")
	}
	if prev != nil && prev.Query == run.Query &&
		prev.Phase != model.PhaseFinalized && prev.Phase != model.PhaseFailed && prev.Phase != "" {
		zap.L().Info("runner: resuming from checkpoint",
			zap.String("session_id", run.SessionID),
			zap.String("phase", string(prev.Phase)),
		)
		prev.RunID = run.ID
		return prev, nil
	}

	return &model.State{
		Query:         run.Query,
		RunID:         run.ID,
		SessionID:     run.SessionID,
		Phase:         model.PhasePlanning,
		MaxIterations: maxIterations,
	}, nil
}

// commit checkpoints the state. Persistence trouble is logged, not fatal:
// losing resumability must not kill a run in flight.
func (r *Runner) commit(ctx context.Context, st *model.State) {
	if err := r.checkpoints.Save(ctx, st.SessionID, st); err != nil {
		zap.L().Error("runner: checkpoint save failed",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
	}
}

// persistOutcome records the finished run in long-term memory: the report
// itself, the sources it cited, and a credibility upsert per cited origin.
func (r *Runner) persistOutcome(ctx context.Context, st *model.State) {
	now := time.Now().UTC()
	report := &model.Report{
		ID:            st.RunID,
		Query:         st.Query,
		Report:        st.FinalReport,
		SourceCount:   len(st.SourcesMeta),
		ConflictCount: len(st.Conflicts),
		Iterations:    st.Iteration,
		CreatedAt:     now,
	}
	if st.Critique != nil {
		report.Score = st.Critique.OverallScore
		report.Summary = st.Critique.Summary
	}

	if err := r.memory.UpsertReport(ctx, report); err != nil {
		zap.L().Error("runner: report upsert failed", zap.Error(err))
		return
	}
	if err := r.memory.SaveReportSources(ctx, st.RunID, st.SourcesMeta); err != nil {
		zap.L().Error("runner: report sources save failed", zap.Error(err))
	}
	for _, src := range st.SourcesMeta {
		rec := model.CredibilityRecord{
			Origin:    src.Origin,
			Title:     src.Title,
			Category:  src.Category,
			Score:     src.Credibility,
			UpdatedAt: now,
		}
		if err := r.memory.UpsertCredibility(ctx, rec); err != nil {
			zap.L().Error("runner: credibility upsert failed",
				zap.String("origin", src.Origin),
				zap.Error(err),
			)
		}
	}
}

// reportFailure emits the terminal error event. A failed emission is logged;
// there is nowhere further to report it.
func (r *Runner) reportFailure(ctx context.Context, runID string, sink event.Sink, cause error) {
	if err := sink.Send(ctx, event.Error("agent_error", cause.Error())); err != nil {
		zap.L().Error("runner: failed to emit error event",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}
