package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/db"
	"github.com/sells-group/research-agent/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection. Save
// runs after every stage, so it is the hot path.
var preparedStatements = map[string]string{
	"save_checkpoint":   `INSERT INTO checkpoints (session_id, phase, state, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (session_id) DO UPDATE SET phase = $2, state = $3, updated_at = $4`,
	"load_checkpoint":   `SELECT state FROM checkpoints WHERE session_id = $1`,
	"delete_checkpoint": `DELETE FROM checkpoints WHERE session_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg, preparedStatements)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_updated_at ON checkpoints(updated_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "checkpoint: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Save upserts the session's state. The state is stored whole as JSONB; it
// contains only data, never sinks or callbacks, so it round-trips cleanly.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, st *model.State) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal state")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO checkpoints (session_id, phase, state, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET phase = $2, state = $3, updated_at = $4`,
		sessionID, string(st.Phase), stateJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "checkpoint: save %s", sessionID)
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*model.State, error) {
	var stateJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM checkpoints WHERE session_id = $1`,
		sessionID,
	).Scan(&stateJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "checkpoint: load %s", sessionID)
	}

	var st model.State
	if err := json.Unmarshal(stateJSON, &st); err != nil {
		return nil, eris.Wrap(err, "checkpoint: unmarshal state")
	}
	return &st, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM checkpoints WHERE session_id = $1`,
		sessionID,
	)
	return eris.Wrapf(err, "checkpoint: delete %s", sessionID)
}
