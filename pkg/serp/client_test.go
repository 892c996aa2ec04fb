package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "organic_results": [
    {"title": "Result one", "link": "https://one.example.com", "snippet": "First.", "source": "one.example.com"},
    {"title": "Result two", "link": "https://two.example.com", "snippet": "Second.", "source": "two.example.com"},
    {"title": "Result three", "link": "https://three.example.com", "snippet": "Third.", "source": "three.example.com"}
  ]
}`

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "vitamin c", r.URL.Query().Get("q"))

		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := client.Search(context.Background(), "vitamin c", 5)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Result one", results[0].Title)
	assert.Equal(t, "https://one.example.com", results[0].Link)
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := client.Search(context.Background(), "vitamin c", 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "anything", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
