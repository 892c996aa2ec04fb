package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "query": {
    "pages": {
      "7394": {"pageid": 7394, "index": 2, "title": "Calcium", "extract": "Calcium is a chemical element."},
      "32501": {"pageid": 32501, "index": 1, "title": "Vitamin D", "extract": "<p>Vitamin D is a group of secosteroids.</p>"}
    }
  }
}`

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "vitamin d", r.URL.Query().Get("gsrsearch"))
		assert.Equal(t, "3", r.URL.Query().Get("gsrlimit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	articles, err := client.Search(context.Background(), "vitamin d", 3)

	require.NoError(t, err)
	require.Len(t, articles, 2)

	// Ranked by the search index, not map iteration order.
	assert.Equal(t, "Vitamin D", articles[0].Title)
	assert.Equal(t, "Vitamin D is a group of secosteroids.", articles[0].Extract)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Vitamin_D", articles[0].URL)
	assert.Equal(t, "Calcium", articles[1].Title)
}

func TestSearch_Empty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	articles, err := client.Search(context.Background(), "zxqw", 3)

	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestSearch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "anything", 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
