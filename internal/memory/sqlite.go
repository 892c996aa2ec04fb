package memory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/research-agent/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "memory: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "memory: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	query          TEXT NOT NULL,
	report         TEXT NOT NULL,
	source_count   INTEGER NOT NULL DEFAULT 0,
	conflict_count INTEGER NOT NULL DEFAULT 0,
	iterations     INTEGER NOT NULL DEFAULT 0,
	score          REAL NOT NULL DEFAULT 0,
	summary        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);

CREATE TABLE IF NOT EXISTS report_sources (
	report_id   TEXT NOT NULL REFERENCES reports(id),
	origin      TEXT NOT NULL,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	credibility REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_sources_report_id ON report_sources(report_id);

CREATE TABLE IF NOT EXISTS source_credibility (
	origin     TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	category   TEXT NOT NULL,
	score      REAL NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "memory: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertReport(ctx context.Context, report *model.Report) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, query, report, source_count, conflict_count, iterations, score, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET report = excluded.report, source_count = excluded.source_count,
		   conflict_count = excluded.conflict_count, iterations = excluded.iterations,
		   score = excluded.score, summary = excluded.summary`,
		report.ID, report.Query, report.Report, report.SourceCount,
		report.ConflictCount, report.Iterations, report.Score, report.Summary,
		report.CreatedAt,
	)
	return eris.Wrapf(err, "memory: upsert report %s", report.ID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, report, source_count, conflict_count, iterations, score, summary, created_at FROM reports WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Query, &r.Report, &r.SourceCount, &r.ConflictCount,
		&r.Iterations, &r.Score, &summary, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "memory: get report %s", id)
	}
	r.Summary = summary.String
	return &r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ListFilter) ([]model.Report, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, report, source_count, conflict_count, iterations, score, summary, created_at
		 FROM reports ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "memory: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var summary sql.NullString
		if err := rows.Scan(&r.ID, &r.Query, &r.Report, &r.SourceCount,
			&r.ConflictCount, &r.Iterations, &r.Score, &summary, &r.CreatedAt); err != nil {
			return nil, 0, eris.Wrap(err, "memory: scan report")
		}
		r.Summary = summary.String
		reports = append(reports, r)
	}
	return reports, total, eris.Wrap(rows.Err(), "memory: list reports iterate")
}

func (s *SQLiteStore) SaveReportSources(ctx context.Context, reportID string, sources []model.SourceMeta) error {
	if len(sources) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "memory: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM report_sources WHERE report_id = ?`, reportID,
	); err != nil {
		return eris.Wrapf(err, "memory: clear report sources %s", reportID)
	}
	for _, src := range sources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_sources (report_id, origin, title, category, credibility) VALUES (?, ?, ?, ?, ?)`,
			reportID, src.Origin, src.Title, string(src.Category), src.Credibility,
		); err != nil {
			return eris.Wrapf(err, "memory: insert report source %s", src.Origin)
		}
	}
	return eris.Wrap(tx.Commit(), "memory: commit report sources")
}

func (s *SQLiteStore) UpsertCredibility(ctx context.Context, rec model.CredibilityRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_credibility (origin, title, category, score, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (origin) DO UPDATE SET title = excluded.title, category = excluded.category,
		   score = excluded.score, updated_at = excluded.updated_at`,
		rec.Origin, rec.Title, string(rec.Category), rec.Score, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "memory: upsert credibility %s", rec.Origin)
}

func (s *SQLiteStore) GetCredibility(ctx context.Context, origin string) (*model.CredibilityRecord, error) {
	var rec model.CredibilityRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT origin, title, category, score, updated_at FROM source_credibility WHERE origin = ?`,
		origin,
	).Scan(&rec.Origin, &rec.Title, &rec.Category, &rec.Score, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "memory: get credibility %s", origin)
	}
	return &rec, nil
}
