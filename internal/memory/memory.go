// Package memory is the long-term store: finished reports and per-origin
// source credibility that accumulates across runs.
package memory

import (
	"context"

	"github.com/sells-group/research-agent/internal/model"
)

// ListFilter specifies paging for report listings.
type ListFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the long-term persistence interface. Credibility upserts are
// keyed by origin, last writer wins.
type Store interface {
	// Reports
	UpsertReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, filter ListFilter) ([]model.Report, int, error)
	SaveReportSources(ctx context.Context, reportID string, sources []model.SourceMeta) error

	// Source credibility
	UpsertCredibility(ctx context.Context, rec model.CredibilityRecord) error
	GetCredibility(ctx context.Context, origin string) (*model.CredibilityRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
