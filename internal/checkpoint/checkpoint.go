// Package checkpoint persists pipeline state keyed by session so an
// interrupted run can resume from its last committed stage.
package checkpoint

import (
	"context"

	"github.com/sells-group/research-agent/internal/model"
)

// Store saves and restores pipeline state. Load returns (nil, nil) when no
// checkpoint exists for the session; callers start fresh in that case.
type Store interface {
	Save(ctx context.Context, sessionID string, st *model.State) error
	Load(ctx context.Context, sessionID string) (*model.State, error)
	Delete(ctx context.Context, sessionID string) error
	Migrate(ctx context.Context) error
	Close() error
}
