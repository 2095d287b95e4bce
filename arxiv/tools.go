package arxiv

import (
	"context"
	"encoding/json"
	"fmt"

	"chatbot-gateway/assistant"
)

type searcher interface {
	PaperSource
	Search(ctx context.Context, query string, max int) ([]Paper, error)
}

// Tools expõe o cliente como ferramentas do agente.
func Tools(c searcher) []assistant.Tool {
	return []assistant.Tool{
		{
			Name:        "search_arxiv",
			Description: "Searches arXiv for a query and returns a JSON list of matching papers.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":       map[string]any{"type": "string", "description": "The query to search arXiv for."},
					"max_results": map[string]any{"type": "integer", "description": "The maximum number of results to return. Defaults to 5."},
				},
				"required": []string{"query"},
			},
			Call: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Query      string `json:"query"`
					MaxResults int    `json:"max_results"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("search_arxiv: bad arguments: %w", err)
				}
				if in.Query == "" {
					return "", fmt.Errorf("search_arxiv: query is required")
				}
				if in.MaxResults <= 0 || in.MaxResults > 10 {
					in.MaxResults = 5
				}
				papers, err := c.Search(ctx, in.Query, in.MaxResults)
				if err != nil {
					return "", err
				}
				return toJSON(papers)
			},
		},
		{
			Name:        "get_arxiv_paper",
			Description: "Returns the metadata and abstract of an arXiv paper by its id (e.g. 1706.03762).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "description": "The arXiv id of the paper."},
				},
				"required": []string{"id"},
			},
			Call: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("get_arxiv_paper: bad arguments: %w", err)
				}
				if in.ID == "" {
					return "", fmt.Errorf("get_arxiv_paper: id is required")
				}
				p, err := c.Paper(ctx, in.ID)
				if err != nil {
					return "", err
				}
				return toJSON(p)
			},
		},
	}
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
