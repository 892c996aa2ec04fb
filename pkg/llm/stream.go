package llm

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// sdkStream adapts the SDK's SSE stream to the Stream interface, surfacing
// only text deltas and skipping every other event kind.
type sdkStream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	text   string
}

func (s *sdkStream) Next() bool {
	for s.stream.Next() {
		event := s.stream.Current()
		delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(sdk.TextDelta); ok && text.Text != "" {
			s.text = text.Text
			return true
		}
	}
	return false
}

func (s *sdkStream) Text() string { return s.text }

func (s *sdkStream) Err() error { return s.stream.Err() }

func (s *sdkStream) Close() error { return s.stream.Close() }
