package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReport(id string) *model.Report {
	return &model.Report{
		ID:            id,
		Query:         "history of container orchestration",
		Report:        "# Research Report\n\nFindings...",
		SourceCount:   7,
		ConflictCount: 1,
		Iterations:    2,
		Score:         0.82,
		Summary:       "Well grounded, minor gaps.",
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLite_Report_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertReport(ctx, sampleReport("run-1")))

	got, err := st.GetReport(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "history of container orchestration", got.Query)
	assert.Equal(t, 7, got.SourceCount)
	assert.Equal(t, 0.82, got.Score)
}

func TestSQLite_Report_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertReport(ctx, sampleReport("run-1")))

	updated := sampleReport("run-1")
	updated.Report = "revised body"
	updated.Iterations = 3
	require.NoError(t, st.UpsertReport(ctx, updated))

	got, err := st.GetReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "revised body", got.Report)
	assert.Equal(t, 3, got.Iterations)
}

func TestSQLite_Report_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetReport(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListReports_Paging(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := sampleReport(fmt.Sprintf("run-%d", i))
		r.CreatedAt = r.CreatedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.UpsertReport(ctx, r))
	}

	items, total, err := st.ListReports(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, "run-4", items[0].ID)
	assert.Equal(t, "run-3", items[1].ID)

	items, total, err = st.ListReports(ctx, ListFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 1)
	assert.Equal(t, "run-0", items[0].ID)
}

func TestSQLite_SaveReportSources_ReplacesPrevious(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertReport(ctx, sampleReport("run-1")))
	first := []model.SourceMeta{
		{Origin: "https://arxiv.org/abs/1", Title: "Paper", Category: model.CategoryAcademic, Credibility: 0.85},
		{Origin: "https://en.wikipedia.org/wiki/X", Title: "X", Category: model.CategoryReference, Credibility: 0.75},
	}
	require.NoError(t, st.SaveReportSources(ctx, "run-1", first))

	second := []model.SourceMeta{
		{Origin: "https://example.com/a", Title: "A", Category: model.CategoryGeneral, Credibility: 0.5},
	}
	require.NoError(t, st.SaveReportSources(ctx, "run-1", second))

	var count int
	err := st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM report_sources WHERE report_id = ?`, "run-1",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_Credibility_LastWriterWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.CredibilityRecord{
		Origin:    "https://arxiv.org/abs/2",
		Title:     "Paper Two",
		Category:  model.CategoryAcademic,
		Score:     0.85,
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.UpsertCredibility(ctx, rec))

	rec.Score = 0.6
	rec.Category = model.CategoryNews
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Hour)
	require.NoError(t, st.UpsertCredibility(ctx, rec))

	got, err := st.GetCredibility(ctx, rec.Origin)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.6, got.Score)
	assert.Equal(t, model.CategoryNews, got.Category)
}

func TestSQLite_Credibility_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCredibility(context.Background(), "https://nowhere")

	require.NoError(t, err)
	assert.Nil(t, got)
}
