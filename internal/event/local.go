package event

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const localQueueDepth = 1024

// localRun is one run's queue plus its wrapper metadata.
type localRun struct {
	meta   Meta
	events chan Event
	closed bool
}

// LocalBroker is the in-process backend: a per-run ordered queue in a
// process-wide registry. Suitable when producer and consumer share a process.
type LocalBroker struct {
	mu      sync.Mutex
	runs    map[string]*localRun
	retain  time.Duration
	nowFunc func() time.Time
}

// NewLocalBroker creates an empty registry. Finished runs are dropped from
// the registry a short while after their sink closes so late subscribers
// still find the drained queue.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		runs:   make(map[string]*localRun),
		retain: 5 * time.Minute,
	}
}

// Open registers a run and returns its producing sink.
func (b *LocalBroker) Open(_ context.Context, runID string, meta Meta) (Sink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.runs[runID]; exists {
		return nil, eris.New("event: run already open: " + runID)
	}
	run := &localRun{
		meta:   meta,
		events: make(chan Event, localQueueDepth),
	}
	b.runs[runID] = run
	return &localSink{broker: b, runID: runID, run: run}, nil
}

// Subscribe returns the run's queue for draining. The channel closes once
// the producer closes its sink and the queue is drained.
func (b *LocalBroker) Subscribe(_ context.Context, runID string) (*Subscription, error) {
	b.mu.Lock()
	run, ok := b.runs[runID]
	b.mu.Unlock()
	if !ok {
		return nil, eris.New("event: run not found: " + runID)
	}

	return &Subscription{
		Meta:   run.meta,
		Events: run.events,
		Cancel: func() {},
	}, nil
}

func (b *LocalBroker) release(runID string) {
	time.AfterFunc(b.retain, func() {
		b.mu.Lock()
		delete(b.runs, runID)
		b.mu.Unlock()
	})
}

type localSink struct {
	broker *LocalBroker
	runID  string
	run    *localRun
	mu     sync.Mutex
}

// Send enqueues an event in order. It blocks when the consumer is more than
// a full queue behind, so cancellation must come from ctx.
func (s *localSink) Send(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.closed {
		return eris.New("event: sink closed")
	}
	select {
	case s.run.events <- ev:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "event: send")
	}
}

// Close closes the queue; a drained, closed channel is the stream sentinel.
func (s *localSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run.closed {
		return nil
	}
	s.run.closed = true
	close(s.run.events)
	s.broker.release(s.runID)
	return nil
}
