// Package arxiv provides a client for the arXiv Atom query API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://export.arxiv.org/api"

// Client searches arXiv for academic papers.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Paper, error)
}

// Paper is a single arXiv result.
type Paper struct {
	Title      string
	Summary    string
	EntryID    string
	PDFURL     string
	Published  time.Time
	Authors    []string
	Categories []string
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
	limiter *rate.Limiter
}

// NewClient creates an arXiv client. The API asks clients to stay under one
// request every three seconds, so requests are rate limited accordingly.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// atom feed wire types
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID         string     `xml:"id"`
	Title      string     `xml:"title"`
	Summary    string     `xml:"summary"`
	Published  string     `xml:"published"`
	Authors    []author   `xml:"author"`
	Categories []category `xml:"category"`
	Links      []link     `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type category struct {
	Term string `xml:"term,attr"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "arxiv: rate limit wait")
	}

	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("max_results", fmt.Sprintf("%d", maxResults))
	q.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "arxiv: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "arxiv: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "arxiv: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("arxiv: unexpected status %d", resp.StatusCode))
	}

	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, eris.Wrap(err, "arxiv: parse feed")
	}

	papers := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		papers = append(papers, fromEntry(e))
	}
	return papers, nil
}

func fromEntry(e entry) Paper {
	p := Paper{
		Title:   strings.TrimSpace(e.Title),
		Summary: strings.TrimSpace(e.Summary),
		EntryID: strings.TrimSpace(e.ID),
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = ts
	}
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	for _, cat := range e.Categories {
		p.Categories = append(p.Categories, cat.Term)
	}
	for _, l := range e.Links {
		if l.Title == "pdf" {
			p.PDFURL = l.Href
		}
	}
	return p
}
