package checkpoint

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Save(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	st := sampleState()

	mock.ExpectExec(`INSERT INTO checkpoints`).
		WithArgs("sess-1", string(model.PhaseRetrieving), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), "sess-1", st))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	st := sampleState()
	raw, err := json.Marshal(st)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT state FROM checkpoints WHERE session_id = \$1`).
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(raw))

	got, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, st, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAbsent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT state FROM checkpoints WHERE session_id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"state"}))

	got, err := s.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM checkpoints WHERE session_id = \$1`).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS checkpoints`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
