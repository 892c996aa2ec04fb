package memory

import (
	"context"
	"errors"

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

var preparedStatements = map[string]string{
	"upsert_report":      `INSERT INTO reports (id, query, report, source_count, conflict_count, iterations, score, summary, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO UPDATE SET report = $3, source_count = $4, conflict_count = $5, iterations = $6, score = $7, summary = $8`,
	"get_report":         `SELECT id, query, report, source_count, conflict_count, iterations, score, summary, created_at FROM reports WHERE id = $1`,
	"upsert_credibility": `INSERT INTO source_credibility (origin, title, category, score, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (origin) DO UPDATE SET title = $2, category = $3, score = $4, updated_at = $5`,
	"get_credibility":    `SELECT origin, title, category, score, updated_at FROM source_credibility WHERE origin = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg, preparedStatements)
	if err != nil {
		return nil, eris.Wrap(err, "memory: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	query          TEXT NOT NULL,
	report         TEXT NOT NULL,
	source_count   INTEGER NOT NULL DEFAULT 0,
	conflict_count INTEGER NOT NULL DEFAULT 0,
	iterations     INTEGER NOT NULL DEFAULT 0,
	score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	summary        TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);

CREATE TABLE IF NOT EXISTS report_sources (
	report_id   TEXT NOT NULL REFERENCES reports(id),
	origin      TEXT NOT NULL,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	credibility DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_sources_report_id ON report_sources(report_id);

CREATE TABLE IF NOT EXISTS source_credibility (
	origin     TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	category   TEXT NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "memory: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertReport(ctx context.Context, report *model.Report) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, query, report, source_count, conflict_count, iterations, score, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET report = $3, source_count = $4, conflict_count = $5, iterations = $6, score = $7, summary = $8`,
		report.ID, report.Query, report.Report, report.SourceCount,
		report.ConflictCount, report.Iterations, report.Score, report.Summary,
		report.CreatedAt,
	)
	return eris.Wrapf(err, "memory: upsert report %s", report.ID)
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	var summary *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, query, report, source_count, conflict_count, iterations, score, summary, created_at FROM reports WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Query, &r.Report, &r.SourceCount, &r.ConflictCount,
		&r.Iterations, &r.Score, &summary, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "memory: get report %s", id)
	}
	if summary != nil {
		r.Summary = *summary
	}
	return &r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ListFilter) ([]model.Report, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "memory: count reports")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, query, report, source_count, conflict_count, iterations, score, summary, created_at
		 FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "memory: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var summary *string
		if err := rows.Scan(&r.ID, &r.Query, &r.Report, &r.SourceCount,
			&r.ConflictCount, &r.Iterations, &r.Score, &summary, &r.CreatedAt); err != nil {
			return nil, 0, eris.Wrap(err, "memory: scan report")
		}
		if summary != nil {
			r.Summary = *summary
		}
		reports = append(reports, r)
	}
	return reports, total, eris.Wrap(rows.Err(), "memory: list reports iterate")
}

// SaveReportSources bulk-records the sources a report cited via COPY. The
// rows are write-once per report; re-running a session replaces them.
func (s *PostgresStore) SaveReportSources(ctx context.Context, reportID string, sources []model.SourceMeta) error {
	if len(sources) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM report_sources WHERE report_id = $1`, reportID,
	); err != nil {
		return eris.Wrapf(err, "memory: clear report sources %s", reportID)
	}

	rows := make([][]any, len(sources))
	for i, src := range sources {
		rows[i] = []any{reportID, src.Origin, src.Title, string(src.Category), src.Credibility}
	}
	_, err := db.CopyFrom(ctx, s.pool, "report_sources",
		[]string{"report_id", "origin", "title", "category", "credibility"}, rows)
	return eris.Wrapf(err, "memory: save report sources %s", reportID)
}

func (s *PostgresStore) UpsertCredibility(ctx context.Context, rec model.CredibilityRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO source_credibility (origin, title, category, score, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (origin) DO UPDATE SET title = $2, category = $3, score = $4, updated_at = $5`,
		rec.Origin, rec.Title, string(rec.Category), rec.Score, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "memory: upsert credibility %s", rec.Origin)
}

func (s *PostgresStore) GetCredibility(ctx context.Context, origin string) (*model.CredibilityRecord, error) {
	var rec model.CredibilityRecord
	err := s.pool.QueryRow(ctx,
		`SELECT origin, title, category, score, updated_at FROM source_credibility WHERE origin = $1`,
		origin,
	).Scan(&rec.Origin, &rec.Title, &rec.Category, &rec.Score, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "memory: get credibility %s", origin)
	}
	return &rec, nil
}
