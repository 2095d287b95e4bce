package websearch

import (
	"context"
	"encoding/json"
	"fmt"

	"chatbot-gateway/assistant"
)

type searcher interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// Tool expõe a busca como a ferramenta web_search.
func Tool(s searcher) assistant.Tool {
	return assistant.Tool{
		Name:        "web_search",
		Description: "Searches the web and returns a JSON list of results with title, url and snippet.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":       map[string]any{"type": "string", "description": "The query to search the web for."},
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
				return "", fmt.Errorf("web_search: bad arguments: %w", err)
			}
			if in.Query == "" {
				return "", fmt.Errorf("web_search: query is required")
			}
			if in.MaxResults <= 0 || in.MaxResults > 10 {
				in.MaxResults = 5
			}
			results, err := s.Search(ctx, in.Query, in.MaxResults)
			if err != nil {
				return "", err
			}
			if len(results) == 0 {
				return "No results found.", nil
			}
			b, err := json.Marshal(results)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
