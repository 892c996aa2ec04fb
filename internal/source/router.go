package source

import "github.com/sells-group/research-agent/internal/model"

// Router resolves an evidence category to an ordered (primary, fallback)
// provider pair. It is a pure lookup with no state beyond the adapters.
type Router struct {
	academic  Provider
	news      Provider
	reference Provider
	general   Provider
}

// NewRouter builds a router over the four category adapters.
func NewRouter(academic, news, reference, general Provider) *Router {
	return &Router{
		academic:  academic,
		news:      news,
		reference: reference,
		general:   general,
	}
}

// Resolve returns the (primary, fallback) pair for a category. Unknown
// categories route like general queries.
func (r *Router) Resolve(c model.Category) (primary, fallback Provider) {
	switch c {
	case model.CategoryAcademic:
		return r.academic, r.general
	case model.CategoryNews:
		return r.news, r.general
	case model.CategoryReference:
		return r.reference, r.general
	case model.CategoryGeneral:
		return r.general, r.news
	default:
		return r.general, r.news
	}
}
