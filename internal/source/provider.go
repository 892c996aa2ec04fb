// Package source maps evidence categories to search providers and scores
// document credibility by the category that actually answered.
package source

import (
	"context"

	"github.com/sells-group/research-agent/internal/model"
)

// Provider is the single retrieval capability every adapter implements.
// Implementations must not let transport or parse errors escape unhandled to
// callers that can't recover; the retriever converts any error to an empty
// result set for that unit.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedDocument, error)
}

// Credibility returns the score for a document based on the category that
// actually produced it, not the category that was requested. A fallback
// provider may answer with a different category than planned.
func Credibility(c model.Category) float64 {
	switch c {
	case model.CategoryAcademic:
		return 0.85
	case model.CategoryReference:
		return 0.75
	case model.CategoryNews:
		return 0.60
	case model.CategoryGeneral:
		return 0.50
	default:
		return 0.50
	}
}
