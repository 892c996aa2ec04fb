// Package serp provides a client for the SerpAPI Google search endpoint.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://serpapi.com"

// Client performs general web searches via SerpAPI.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result is a single organic search result.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
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
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	OrganicResults []Result `json:"organic_results"`
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serp: rate limit wait")
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("num", fmt.Sprintf("%d", maxResults))
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serp: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serp: execute request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serp: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("serp: unexpected status %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "serp: parse response")
	}

	results := parsed.OrganicResults
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
