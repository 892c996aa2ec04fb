package agent

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/source"
)

// Retriever fans the plan out across providers and merges results into the
// state. One unit per sub-query; a unit's failure never aborts its siblings.
type Retriever struct {
	router     *source.Router
	maxResults int
}

// NewRetriever creates a retriever stage.
func NewRetriever(router *source.Router, maxResults int) *Retriever {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Retriever{router: router, maxResults: maxResults}
}

// Run executes every plan unit concurrently. Each unit resolves its
// (primary, fallback) pair, falls back when the primary comes up empty, and
// emits its steps and sources events the moment it completes, so event order
// across units is completion order. Documents merge into the state under a
// mutex; membership never depends on completion order.
func (r *Retriever) Run(ctx context.Context, st *model.State, sink event.Sink) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, sq := range st.Plan {
		g.Go(func() error {
			label := fmt.Sprintf("[%s] %s", sq.Category, sq.Query)
			if err := sink.Send(gctx, event.Steps(event.Step{
				ID:     strconv.Itoa(i),
				Text:   label,
				Status: event.StepPending,
				Detail: fmt.Sprintf("Searching %s sources...", sq.Category),
			})); err != nil {
				return err
			}

			docs := r.retrieveUnit(gctx, sq)

			mu.Lock()
			offset := len(st.Documents)
			st.MergeDocuments(docs)
			mu.Unlock()

			refs := make([]event.SourceRef, len(docs))
			for j, doc := range docs {
				refs[j] = event.SourceRef{
					Title:       doc.Title,
					Link:        doc.Origin,
					Snippet:     doc.Snippet,
					Category:    string(doc.Category),
					Index:       offset + j,
					Credibility: doc.Credibility,
				}
			}
			if err := sink.Send(gctx, event.Sources(refs)); err != nil {
				return err
			}
			return sink.Send(gctx, event.Steps(event.Step{
				ID:     strconv.Itoa(i),
				Text:   label,
				Status: event.StepCompleted,
				Detail: fmt.Sprintf("Found %d results", len(docs)),
			}))
		})
	}
	return g.Wait()
}

// retrieveUnit runs one sub-query against its primary provider, then the
// fallback if the primary produced nothing. Provider errors are downgraded
// to empty results; only event delivery can fail a unit. Each effective
// document is scored by the category that actually answered, which may
// differ from the planned category after a fallback.
func (r *Retriever) retrieveUnit(ctx context.Context, sq model.SubQuery) []model.RetrievedDocument {
	primary, fallback := r.router.Resolve(sq.Category)

	docs := r.search(ctx, primary, sq)
	if len(docs) == 0 && fallback != nil {
		zap.L().Info("retriever: primary returned no results, trying fallback",
			zap.String("query", sq.Query),
			zap.String("primary", primary.Name()),
			zap.String("fallback", fallback.Name()),
		)
		docs = r.search(ctx, fallback, sq)
	}
	for i := range docs {
		docs[i].Credibility = source.Credibility(docs[i].Category)
	}
	return docs
}

func (r *Retriever) search(ctx context.Context, p source.Provider, sq model.SubQuery) []model.RetrievedDocument {
	docs, err := p.Search(ctx, sq.Query, r.maxResults)
	if err != nil {
		zap.L().Error("retriever: provider failed",
			zap.String("provider", p.Name()),
			zap.String("query", sq.Query),
			zap.Error(err),
		)
		return nil
	}
	return docs
}
