package arxiv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chatbot-gateway/bot/dispatch/domain"
)

const (
	ReplyUsage    = "Hi, please use `@ArxivAI discuss <paper>` or `@ArxivAI summary <paper>` to interact with me."
	ReplyBadURL   = "Please provide a valid arXiv paper URL. Example: `https://arxiv.org/abs/1706.03762`"
	ReplyNotFound = "Sorry, could not find this paper."
	FollowUp      = "-----\n\nHow can I help with this paper?"
)

var ErrInvalidURL = errors.New("invalid arXiv URL")

var (
	newStyleID = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	oldStyleID = regexp.MustCompile(`^[a-z-]+(\.[A-Za-z]{2})?/\d{7}(v\d+)?$`)
)

// PaperIDFromURL extrai o id de https://arxiv.org/abs/<id> (ou /pdf/<id>).
func PaperIDFromURL(raw string) (string, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "<>")
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Host) {
	case "arxiv.org", "www.arxiv.org", "export.arxiv.org":
	default:
		return "", fmt.Errorf("%w: host %q", ErrInvalidURL, u.Host)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}

	var id string
	switch {
	case strings.HasPrefix(u.Path, "/abs/"):
		id = strings.TrimPrefix(u.Path, "/abs/")
	case strings.HasPrefix(u.Path, "/pdf/"):
		id = strings.TrimSuffix(strings.TrimPrefix(u.Path, "/pdf/"), ".pdf")
	default:
		return "", fmt.Errorf("%w: path %q", ErrInvalidURL, u.Path)
	}
	id = strings.TrimSuffix(id, "/")

	if !newStyleID.MatchString(id) && !oldStyleID.MatchString(id) {
		return "", fmt.Errorf("%w: id %q", ErrInvalidURL, id)
	}
	return id, nil
}

type PaperSource interface {
	Paper(ctx context.Context, id string) (Paper, error)
}

// Opener trata `discuss <url>` e `summary <url>` e prepara a thread do artigo.
type Opener struct {
	Papers PaperSource
}

func (o Opener) Open(ctx context.Context, _ domain.InboundMessage, text string) (domain.Opening, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return domain.Opening{}, domain.Usage(ReplyUsage)
	}
	verb := strings.ToLower(parts[0])
	if verb != "discuss" && verb != "summary" {
		return domain.Opening{}, domain.Usage(ReplyUsage)
	}

	id, err := PaperIDFromURL(parts[1])
	if err != nil {
		return domain.Opening{}, domain.Usage(ReplyBadURL)
	}

	paper, err := o.Papers.Paper(ctx, id)
	if err != nil {
		return domain.Opening{}, domain.Reject(ReplyNotFound, err)
	}
	ref := &domain.PaperRef{ID: paper.ShortID(), Title: paper.Title}

	if verb == "discuss" {
		return domain.Opening{
			ThreadName: paper.Title,
			Greeting:   "How can I help with: `" + paper.Title + "`",
			Profile:    "arxiv_discussion",
			Paper:      ref,
		}, nil
	}

	details, err := json.MarshalIndent(paper, "", "    ")
	if err != nil {
		return domain.Opening{}, fmt.Errorf("encode paper %s: %w", id, err)
	}
	return domain.Opening{
		ThreadName: paper.Title,
		Greeting:   "Reading up on: `" + paper.Title + "`",
		Prompt:     "Summarize this paper.",
		FollowUp:   FollowUp,
		Profile:    "arxiv_summary",
		Paper:      ref,
		Context:    "<arxiv_paper>\n" + string(details) + "\n</arxiv_paper>",
	}, nil
}
