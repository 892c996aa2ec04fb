package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	streamChannelPrefix = "research:stream:"
	metaKeyPrefix       = "research:meta:"
	metaTTL             = time.Hour

	metaLookupAttempts = 50
	metaLookupInterval = 200 * time.Millisecond
)

// RedisBroker is the multi-process backend: events go over a per-run pub/sub
// channel and the wrapper metadata is stored separately with a TTL so a
// late-joining subscriber can still render session fields.
type RedisBroker struct {
	rdb *redis.Client
}

// NewRedisBroker wraps an existing Redis client.
func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

// StreamChannel returns the pub/sub channel name for a run.
func StreamChannel(runID string) string { return streamChannelPrefix + runID }

// MetaKey returns the metadata key for a run.
func MetaKey(runID string) string { return metaKeyPrefix + runID }

// Open stores the metadata record, then returns a publishing sink. The
// metadata write happens before any event so subscribers never see events
// for a run they cannot identify.
func (b *RedisBroker) Open(ctx context.Context, runID string, meta Meta) (Sink, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrap(err, "event: marshal meta")
	}
	if err := b.rdb.SetEx(ctx, MetaKey(runID), raw, metaTTL).Err(); err != nil {
		return nil, eris.Wrap(err, "event: store meta")
	}
	return &redisSink{rdb: b.rdb, channel: StreamChannel(runID)}, nil
}

// Subscribe retries the metadata lookup a bounded number of times before
// declaring the run not found, then relays decoded events until a terminal
// event or cancellation.
func (b *RedisBroker) Subscribe(ctx context.Context, runID string) (*Subscription, error) {
	meta, err := b.lookupMeta(ctx, runID)
	if err != nil {
		return nil, err
	}

	pubsub := b.rdb.Subscribe(ctx, StreamChannel(runID))
	out := make(chan Event, 64)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				zap.L().Warn("event: drop undecodable message",
					zap.String("run_id", runID),
					zap.Error(err),
				)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}()

	return &Subscription{
		Meta:   meta,
		Events: out,
		Cancel: func() { _ = pubsub.Close() },
	}, nil
}

func (b *RedisBroker) lookupMeta(ctx context.Context, runID string) (Meta, error) {
	var meta Meta
	for attempt := 0; attempt < metaLookupAttempts; attempt++ {
		raw, err := b.rdb.Get(ctx, MetaKey(runID)).Result()
		if err == nil {
			if uerr := json.Unmarshal([]byte(raw), &meta); uerr != nil {
				return Meta{}, eris.Wrap(uerr, "event: decode meta")
			}
			return meta, nil
		}
		if !eris.Is(err, redis.Nil) {
			return Meta{}, eris.Wrap(err, "event: load meta")
		}
		select {
		case <-time.After(metaLookupInterval):
		case <-ctx.Done():
			return Meta{}, eris.Wrap(ctx.Err(), "event: meta lookup")
		}
	}
	return Meta{}, eris.New("event: run not found: " + runID)
}

type redisSink struct {
	rdb     *redis.Client
	channel string
}

func (s *redisSink) Send(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "event: marshal event")
	}
	if err := s.rdb.Publish(ctx, s.channel, raw).Err(); err != nil {
		return eris.Wrap(err, "event: publish")
	}
	return nil
}

// Close is a no-op: pub/sub has no sentinel, subscribers stop on the
// terminal done/error event instead.
func (s *redisSink) Close() error { return nil }
