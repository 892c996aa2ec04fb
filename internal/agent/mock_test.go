package agent

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/memory"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/llm"
)

// --- LLM mock ---

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func (m *mockLLM) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(llm.Stream), args.Error(1)
}

// fakeStream replays a fixed token sequence.
type fakeStream struct {
	tokens []string
	idx    int
	err    error
}

func (s *fakeStream) Next() bool {
	if s.idx >= len(s.tokens) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeStream) Text() string { return s.tokens[s.idx-1] }
func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { return nil }

// --- Provider fake ---

type fakeProvider struct {
	name  string
	docs  []model.RetrievedDocument
	err   error
	mu    sync.Mutex
	calls []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Search(_ context.Context, query string, _ int) ([]model.RetrievedDocument, error) {
	p.mu.Lock()
	p.calls = append(p.calls, query)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.docs, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// --- Sink capture ---

type captureSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *captureSink) Send(_ context.Context, ev event.Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) all() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

func (s *captureSink) byType(t event.Type) []event.Event {
	var out []event.Event
	for _, ev := range s.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (s *captureSink) answerText() string {
	var text string
	for _, ev := range s.byType(event.TypeAnswer) {
		if answer, ok := ev.Data["answer"].(map[string]any); ok {
			if t, ok := answer["text"].(string); ok {
				text += t
			}
		}
	}
	return text
}

// --- Memory fake ---

type fakeMemory struct {
	mu          sync.Mutex
	reports     map[string]*model.Report
	sources     map[string][]model.SourceMeta
	credibility map[string]model.CredibilityRecord
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		reports:     make(map[string]*model.Report),
		sources:     make(map[string][]model.SourceMeta),
		credibility: make(map[string]model.CredibilityRecord),
	}
}

func (f *fakeMemory) UpsertReport(_ context.Context, r *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[r.ID] = r
	return nil
}

func (f *fakeMemory) GetReport(_ context.Context, id string) (*model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[id], nil
}

func (f *fakeMemory) ListReports(_ context.Context, _ memory.ListFilter) ([]model.Report, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Report
	for _, r := range f.reports {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeMemory) SaveReportSources(_ context.Context, reportID string, sources []model.SourceMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[reportID] = sources
	return nil
}

func (f *fakeMemory) UpsertCredibility(_ context.Context, rec model.CredibilityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credibility[rec.Origin] = rec
	return nil
}

func (f *fakeMemory) GetCredibility(_ context.Context, origin string) (*model.CredibilityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.credibility[origin]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeMemory) Migrate(context.Context) error { return nil }
func (f *fakeMemory) Close() error                  { return nil }
