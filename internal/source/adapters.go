package source

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/arxiv"
	"github.com/sells-group/research-agent/pkg/serp"
	"github.com/sells-group/research-agent/pkg/tavily"
	"github.com/sells-group/research-agent/pkg/wikipedia"
)

// ArxivProvider serves the academic category from the arXiv query API.
type ArxivProvider struct {
	client arxiv.Client
}

// NewArxivProvider wraps an arXiv client.
func NewArxivProvider(client arxiv.Client) *ArxivProvider {
	return &ArxivProvider{client: client}
}

func (p *ArxivProvider) Name() string { return "arxiv" }

func (p *ArxivProvider) Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedDocument, error) {
	papers, err := p.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, eris.Wrap(err, "source: arxiv search")
	}

	docs := make([]model.RetrievedDocument, 0, len(papers))
	for _, paper := range papers {
		md := map[string]any{
			"authors":    paper.Authors,
			"categories": paper.Categories,
		}
		if !paper.Published.IsZero() {
			md["published"] = paper.Published.Format("2006-01-02")
		}
		if paper.PDFURL != "" {
			md["pdf_url"] = paper.PDFURL
		}
		docs = append(docs, model.RetrievedDocument{
			Title:    paper.Title,
			Content:  paper.Summary,
			Origin:   paper.EntryID,
			Category: model.CategoryAcademic,
			Snippet:  snippet(paper.Summary),
			Metadata: md,
		})
	}
	return docs, nil
}

// WikipediaProvider serves the reference category from the MediaWiki API.
type WikipediaProvider struct {
	client wikipedia.Client
}

// NewWikipediaProvider wraps a Wikipedia client.
func NewWikipediaProvider(client wikipedia.Client) *WikipediaProvider {
	return &WikipediaProvider{client: client}
}

func (p *WikipediaProvider) Name() string { return "wikipedia" }

func (p *WikipediaProvider) Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedDocument, error) {
	articles, err := p.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, eris.Wrap(err, "source: wikipedia search")
	}

	docs := make([]model.RetrievedDocument, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, model.RetrievedDocument{
			Title:    a.Title,
			Content:  a.Extract,
			Origin:   a.URL,
			Category: model.CategoryReference,
			Snippet:  a.Snippet,
			Metadata: map[string]any{"page_id": a.PageID},
		})
	}
	return docs, nil
}

// TavilyProvider serves the news category from the Tavily search API.
type TavilyProvider struct {
	client tavily.Client
}

// NewTavilyProvider wraps a Tavily client.
func NewTavilyProvider(client tavily.Client) *TavilyProvider {
	return &TavilyProvider{client: client}
}

func (p *TavilyProvider) Name() string { return "tavily" }

func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedDocument, error) {
	results, err := p.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, eris.Wrap(err, "source: tavily search")
	}

	docs := make([]model.RetrievedDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, model.RetrievedDocument{
			Title:    r.Title,
			Content:  r.Content,
			Origin:   r.URL,
			Category: model.CategoryNews,
			Snippet:  snippet(r.Content),
			Metadata: map[string]any{"relevance": r.Score},
		})
	}
	return docs, nil
}

// SerpProvider serves the general category from SerpAPI organic results.
type SerpProvider struct {
	client serp.Client
}

// NewSerpProvider wraps a SerpAPI client.
func NewSerpProvider(client serp.Client) *SerpProvider {
	return &SerpProvider{client: client}
}

func (p *SerpProvider) Name() string { return "serp" }

func (p *SerpProvider) Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedDocument, error) {
	results, err := p.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, eris.Wrap(err, "source: serp search")
	}

	docs := make([]model.RetrievedDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, model.RetrievedDocument{
			Title:    r.Title,
			Content:  r.Snippet,
			Origin:   r.Link,
			Category: model.CategoryGeneral,
			Snippet:  r.Snippet,
			Metadata: map[string]any{"source": r.Source},
		})
	}
	return docs, nil
}

// snippet shortens content for source listings, cutting on a rune boundary
// so a multi-byte character is never split.
func snippet(content string) string {
	const max = 300
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
