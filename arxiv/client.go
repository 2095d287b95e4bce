// Package arxiv consulta a API Atom do arXiv e expõe os artigos para o bot.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultBaseURL = "http://export.arxiv.org/api/query"

var ErrPaperNotFound = errors.New("paper not found")

type Paper struct {
	EntryID         string    `json:"entry_id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Authors         []string  `json:"authors"`
	PrimaryCategory string    `json:"primary_category"`
	Categories      []string  `json:"categories"`
	Published       time.Time `json:"published"`
	Updated         time.Time `json:"updated"`
	PDFURL          string    `json:"pdf_url,omitempty"`
	Links           []string  `json:"links"`
	Comment         string    `json:"comment,omitempty"`
}

// ShortID é o id depois de /abs/, com versão (ex: 1706.03762v7).
func (p Paper) ShortID() string {
	if i := strings.Index(p.EntryID, "/abs/"); i >= 0 {
		return p.EntryID[i+len("/abs/"):]
	}
	return p.EntryID
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *lru.Cache[string, Paper]
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient cria o cliente com um cache LRU de cacheSize artigos (0 desliga o cache).
func NewClient(cacheSize int, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, Paper](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("arxiv cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Paper busca um artigo pelo id (com ou sem versão).
func (c *Client) Paper(ctx context.Context, id string) (Paper, error) {
	if c.cache != nil {
		if p, ok := c.cache.Get(id); ok {
			return p, nil
		}
	}

	q := url.Values{}
	q.Set("id_list", id)
	q.Set("max_results", "1")
	papers, err := c.query(ctx, q)
	if err != nil {
		return Paper{}, err
	}
	if len(papers) == 0 {
		return Paper{}, fmt.Errorf("arxiv %s: %w", id, ErrPaperNotFound)
	}

	p := papers[0]
	if c.cache != nil {
		c.cache.Add(id, p)
	}
	return p, nil
}

// Search devolve até max artigos ordenados por relevância.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Paper, error) {
	if max <= 0 {
		max = 5
	}
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(max))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")
	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q url.Values) ([]Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("arxiv: decode feed: %w", err)
	}

	out := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		// id inválido vem como uma entrada de erro, não como status HTTP
		if strings.Contains(e.ID, "/api/errors") || e.Title == "Error" {
			continue
		}
		out = append(out, e.paper())
	}
	return out, nil
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string    `xml:"id"`
	Title     string    `xml:"title"`
	Summary   string    `xml:"summary"`
	Published time.Time `xml:"published"`
	Updated   time.Time `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"http://arxiv.org/schemas/atom primary_category"`
	Comment string `xml:"http://arxiv.org/schemas/atom comment"`
}

func (e entry) paper() Paper {
	p := Paper{
		EntryID:         strings.TrimSpace(e.ID),
		Title:           squash(e.Title),
		Summary:         squash(e.Summary),
		PrimaryCategory: e.PrimaryCategory.Term,
		Published:       e.Published,
		Updated:         e.Updated,
		Comment:         squash(e.Comment),
	}
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, squash(a.Name))
	}
	for _, c := range e.Categories {
		p.Categories = append(p.Categories, c.Term)
	}
	for _, l := range e.Links {
		p.Links = append(p.Links, l.Href)
		if l.Title == "pdf" {
			p.PDFURL = l.Href
		}
	}
	return p
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
