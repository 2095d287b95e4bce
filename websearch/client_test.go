package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2Feffective_go&amp;rut=abc">Effective <b>Go</b> - The Go Programming Language</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=x">Tips for writing clear, <b>idiomatic</b> Go code.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://pkg.go.dev/context">context package</a>
    </h2>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/third">Third</a></h2>
    <a class="result__snippet">third snippet</a>
  </div>
</div>
</body></html>`

func newServer(t *testing.T, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotQuery = r.URL.Query().Get("q")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(resultsPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch_ParsesResults(t *testing.T) {
	var q string
	srv := newServer(t, &q)
	c := NewClient(WithBaseURL(srv.URL + "/html/"))

	results, err := c.Search(context.Background(), "effective go", 5)
	require.NoError(t, err)
	assert.Equal(t, "effective go", q)
	require.Len(t, results, 3)

	assert.Equal(t, "Effective Go - The Go Programming Language", results[0].Title)
	assert.Equal(t, "https://go.dev/doc/effective_go", results[0].URL)
	assert.Equal(t, "Tips for writing clear, idiomatic Go code.", results[0].Snippet)

	assert.Equal(t, "https://pkg.go.dev/context", results[1].URL)
	assert.Empty(t, results[1].Snippet)
	assert.Equal(t, "third snippet", results[2].Snippet)
}

func TestSearch_RespectsMax(t *testing.T) {
	var q string
	srv := newServer(t, &q)
	c := NewClient(WithBaseURL(srv.URL))

	results, err := c.Search(context.Background(), "go", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://go.dev/doc/effective_go", results[0].URL)
}

func TestSearch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "go", 3)
	assert.ErrorContains(t, err, "429")
}

func TestTool_WebSearch(t *testing.T) {
	var q string
	srv := newServer(t, &q)
	tool := Tool(NewClient(WithBaseURL(srv.URL)))
	assert.Equal(t, "web_search", tool.Name)

	out, err := tool.Call(context.Background(), json.RawMessage(`{"query":"context","max_results":50}`))
	require.NoError(t, err)
	assert.Equal(t, "context", q)

	var results []Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 3)

	_, err = tool.Call(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

type emptySearcher struct{}

func (emptySearcher) Search(context.Context, string, int) ([]Result, error) { return nil, nil }

func TestTool_NoResults(t *testing.T) {
	out, err := Tool(emptySearcher{}).Call(context.Background(), json.RawMessage(`{"query":"zzz"}`))
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
}
