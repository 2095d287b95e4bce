package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const attentionFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title type="html">ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <updated>2023-08-02T00:41:18Z</updated>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models are based on
      complex recurrent or convolutional neural networks.</summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <arxiv:comment xmlns:arxiv="http://arxiv.org/schemas/atom">15 pages, 5 figures</arxiv:comment>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
    <arxiv:primary_category xmlns:arxiv="http://arxiv.org/schemas/atom" term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
</feed>`

const errorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_9999.99999</id>
    <title>Error</title>
    <summary>incorrect id format for 9999.99999</summary>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

func newFeedServer(t *testing.T, hits *int32, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(16, WithBaseURL(srv.URL+"/api/query"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestClient_Paper(t *testing.T) {
	var hits int32
	c := newFeedServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		assert.Equal(t, "1706.03762", r.URL.Query().Get("id_list"))
		_, _ = w.Write([]byte(attentionFeed))
	})

	p, err := c.Paper(context.Background(), "1706.03762")
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.Equal(t, "1706.03762v7", p.ShortID())
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, p.Authors)
	assert.Equal(t, "cs.CL", p.PrimaryCategory)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, p.Categories)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", p.PDFURL)
	assert.Equal(t, "15 pages, 5 figures", p.Comment)
	assert.Equal(t, 2017, p.Published.Year())
	assert.NotContains(t, p.Summary, "\n")

	_, err = c.Paper(context.Background(), "1706.03762")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "second lookup is served from cache")
}

func TestClient_PaperNotFound(t *testing.T) {
	for name, body := range map[string]string{"error entry": errorFeed, "empty feed": emptyFeed} {
		var hits int32
		c := newFeedServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.Paper(context.Background(), "9999.99999")
		assert.ErrorIs(t, err, ErrPaperNotFound, name)
	}
}

func TestClient_HTTPError(t *testing.T) {
	var hits int32
	c := newFeedServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	})
	_, err := c.Paper(context.Background(), "1706.03762")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaperNotFound)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Search(t *testing.T) {
	var hits int32
	c := newFeedServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "all:attention", q.Get("search_query"))
		assert.Equal(t, "3", q.Get("max_results"))
		assert.Equal(t, "relevance", q.Get("sortBy"))
		_, _ = w.Write([]byte(attentionFeed))
	})

	papers, err := c.Search(context.Background(), "attention", 3)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Attention Is All You Need", papers[0].Title)
}
