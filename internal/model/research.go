package model

import "time"

// Category classifies retrieval intent. The set is closed; the router maps
// each category to a (primary, fallback) provider pair.
type Category string

const (
	CategoryAcademic  Category = "academic"
	CategoryNews      Category = "news"
	CategoryReference Category = "reference"
	CategoryGeneral   Category = "general"
)

// Known reports whether c is one of the closed category values.
func (c Category) Known() bool {
	switch c {
	case CategoryAcademic, CategoryNews, CategoryReference, CategoryGeneral:
		return true
	}
	return false
}

// SubQuery is one planned retrieval unit. Produced only by the planner and
// immutable afterwards.
type SubQuery struct {
	Query     string   `json:"query"`
	Category  Category `json:"category"`
	Rationale string   `json:"rationale,omitempty"`
}

// RetrievedDocument is one document returned by a search provider.
type RetrievedDocument struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Origin      string         `json:"origin"`
	Category    Category       `json:"category"`
	Snippet     string         `json:"snippet,omitempty"`
	Credibility float64        `json:"credibility"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Conflict is a contradiction between two sources, extracted from the
// synthesizer's own output.
type Conflict struct {
	ClaimA      string `json:"claim_a"`
	SourceA     string `json:"source_a"`
	ClaimB      string `json:"claim_b"`
	SourceB     string `json:"source_b"`
	Description string `json:"description"`
	Resolution  string `json:"resolution,omitempty"`
}

// SourceMeta is a per-run snapshot of a cited source, used to update the
// long-lived credibility store after the run completes.
type SourceMeta struct {
	Origin      string   `json:"origin"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Credibility float64  `json:"credibility"`
}

// CredibilityRecord is the long-lived per-origin credibility entry,
// upserted after every run that cites the origin.
type CredibilityRecord struct {
	Origin    string    `json:"origin"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Critique is the critic's verdict on a draft. One instance per iteration,
// overwritten each loop.
type Critique struct {
	NeedsRefinement  bool     `json:"needs_refinement"`
	OverallScore     float64  `json:"overall_score"`
	Gaps             []string `json:"gaps,omitempty"`
	DiversityIssues  []string `json:"diversity_issues,omitempty"`
	OutdatedConcerns []string `json:"outdated_concerns,omitempty"`
	Suggestions      []string `json:"suggestions,omitempty"`
	Summary          string   `json:"summary,omitempty"`
}
