// Package wikipedia provides a client for the MediaWiki search API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://en.wikipedia.org/w/api.php"

// Client searches Wikipedia articles.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Article, error)
}

// Article is a single Wikipedia search hit with its intro extract.
type Article struct {
	Title   string
	Extract string
	Snippet string
	URL     string
	PageID  int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Wikipedia client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wire types for action=query & generator=search & prop=extracts
type queryResponse struct {
	Query struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

type page struct {
	PageID  int    `json:"pageid"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]Article, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("generator", "search")
	q.Set("gsrsearch", query)
	q.Set("gsrlimit", fmt.Sprintf("%d", maxResults))
	q.Set("prop", "extracts")
	q.Set("exintro", "1")
	q.Set("explaintext", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("wikipedia: unexpected status %d", resp.StatusCode))
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "wikipedia: parse response")
	}

	// Pages come back as an unordered map; the "index" field carries the
	// search ranking.
	articles := make([]Article, 0, len(parsed.Query.Pages))
	for _, p := range parsed.Query.Pages {
		extract := strings.TrimSpace(tagRe.ReplaceAllString(p.Extract, ""))
		articles = append(articles, Article{
			Title:   p.Title,
			Extract: extract,
			Snippet: firstN(extract, 300),
			URL:     "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(p.Title, " ", "_")),
			PageID:  p.PageID,
		})
	}
	sortByIndex(articles, parsed.Query.Pages)
	return articles, nil
}

func sortByIndex(articles []Article, pages map[string]page) {
	rank := make(map[int]int, len(pages))
	for _, p := range pages {
		rank[p.PageID] = p.Index
	}
	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if rank[articles[j].PageID] < rank[articles[i].PageID] {
				articles[i], articles[j] = articles[j], articles[i]
			}
		}
	}
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
