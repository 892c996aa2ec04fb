package checkpoint

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
)

// MemoryStore is an in-process Store for tests and single-run dev use. It
// stores serialized state, not pointers, so it exercises the same JSON
// round-trip the Postgres store does.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, st *model.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal state")
	}
	s.mu.Lock()
	s.states[sessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*model.State, error) {
	s.mu.RLock()
	raw, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var st model.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, eris.Wrap(err, "checkpoint: unmarshal state")
	}
	return &st, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.states, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
