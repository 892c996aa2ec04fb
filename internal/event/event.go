// Package event delivers pipeline progress to one external listener per run,
// decoupled from pipeline execution. Two interchangeable backends exist: an
// in-process queue for single-process deployments and Redis pub/sub for
// multi-process ones.
package event

import "context"

// Type is the event kind on the wire.
type Type string

const (
	TypeSteps   Type = "steps"
	TypeSources Type = "sources"
	TypeAnswer  Type = "answer"
	TypeDone    Type = "done"
	TypeError   Type = "error"
	TypePing    Type = "ping"
)

// Event is one progress increment. Events are ephemeral; nothing outlives
// the delivery window.
type Event struct {
	Type Type           `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == TypeDone || e.Type == TypeError
}

// Meta is the wrapper record a late-joining subscriber needs to render
// session-level fields. It is published before any event.
type Meta struct {
	SessionID string `json:"session_id"`
	ReplyID   string `json:"reply_id"`
}

// Sink accepts events for a single run. Stages receive the sink as an
// explicit argument; it is never stored in checkpointed state.
type Sink interface {
	Send(ctx context.Context, ev Event) error
	// Close releases the sink after the terminal event has been sent.
	Close() error
}

// Subscription is a consumer's view of one run's stream. The Events channel
// closes after the terminal event (or when the producer closes its sink).
type Subscription struct {
	Meta   Meta
	Events <-chan Event
	Cancel func()
}

// Broker creates sinks and subscriptions for runs. Selected once at run
// start, never branched on elsewhere.
type Broker interface {
	Open(ctx context.Context, runID string, meta Meta) (Sink, error)
	Subscribe(ctx context.Context, runID string) (*Subscription, error)
}

// Answer builds an answer event carrying one text increment.
func Answer(text string) Event {
	return Event{Type: TypeAnswer, Data: map[string]any{
		"answer": map[string]any{"text": text},
	}}
}

// Done builds the successful terminal event.
func Done() Event {
	return Event{Type: TypeDone, Data: map[string]any{
		"type":   "done",
		"status": "complete",
	}}
}

// Error builds the failure terminal event with a stable error-type tag.
func Error(tag, message string) Event {
	return Event{Type: TypeError, Data: map[string]any{
		"type":  tag,
		"error": message,
	}}
}

// Ping builds a keepalive event. It never alters pipeline state.
func Ping() Event {
	return Event{Type: TypePing}
}

// StepState marks a step as in progress or finished in a steps event.
type StepState string

const (
	StepPending   StepState = "PENDING"
	StepCompleted StepState = "COMPLETED"
)

// Step describes one unit of visible progress.
type Step struct {
	ID     string
	Text   string
	Status StepState
	Detail string
}

// Steps builds a steps event from one or more progress entries.
func Steps(steps ...Step) Event {
	items := make([]map[string]any, len(steps))
	for i, s := range steps {
		item := map[string]any{
			"id":     s.ID,
			"text":   s.Text,
			"status": string(s.Status),
		}
		sub := []map[string]any{}
		if s.Detail != "" {
			sub = append(sub, map[string]any{"data": s.Detail, "status": string(s.Status)})
		}
		item["steps"] = sub
		items[i] = item
	}
	return Event{Type: TypeSteps, Data: map[string]any{"steps": items}}
}

// SourceRef is the listing entry for one retrieved document.
type SourceRef struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	Snippet     string  `json:"snippet"`
	Category    string  `json:"source_type"`
	Index       int     `json:"index"`
	Credibility float64 `json:"credibility_score"`
}

// Sources builds a sources event for one completed retrieval unit.
func Sources(refs []SourceRef) Event {
	items := make([]map[string]any, len(refs))
	for i, r := range refs {
		items[i] = map[string]any{
			"title":             r.Title,
			"link":              r.Link,
			"snippet":           r.Snippet,
			"source_type":       r.Category,
			"index":             r.Index,
			"credibility_score": r.Credibility,
		}
	}
	return Event{Type: TypeSources, Data: map[string]any{"sources": items}}
}
