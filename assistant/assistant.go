// Package assistant é o agente LLM por trás do bot: monta o prompt a partir de um
// perfil, guarda a conversa de cada thread e resolve as chamadas de ferramenta.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

// ErrNoPaper: o perfil exige um artigo e nem a requisição nem a run têm um.
var ErrNoPaper = errors.New("no paper for this run")

var ErrToolRounds = errors.New("too many tool rounds")

type Assistant struct {
	completer     Completer
	store         RunStore
	profiles      Profiles
	tools         map[string]Tool
	maxToolRounds int
	log           *slog.Logger
	now           func() time.Time
}

type Option func(*Assistant)

func WithTools(tools ...Tool) Option {
	return func(a *Assistant) {
		for _, t := range tools {
			a.tools[t.Name] = t
		}
	}
}

func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) { a.maxToolRounds = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.log = l }
}

func New(c Completer, store RunStore, profiles Profiles, opts ...Option) *Assistant {
	a := &Assistant{
		completer:     c,
		store:         store,
		profiles:      profiles,
		tools:         make(map[string]Tool),
		maxToolRounds: 4,
		log:           slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) loadRun(ctx context.Context, req domain.AgentRequest) (Run, error) {
	run, err := a.store.GetRun(ctx, req.RunID)
	if errors.Is(err, ErrRunNotFound) {
		return Run{ID: req.RunID, UserID: req.UserID, CreatedAt: a.now().UTC()}, nil
	}
	return run, err
}

// Open cria ou atualiza a run da thread sem chamar o modelo.
func (a *Assistant) Open(ctx context.Context, req domain.AgentRequest) error {
	run, err := a.loadRun(ctx, req)
	if err != nil {
		return fmt.Errorf("open run %s: %w", req.RunID, err)
	}
	if req.Profile != "" {
		if _, ok := a.profiles.Get(req.Profile); !ok {
			return fmt.Errorf("open run %s: unknown profile %q (known: %s)", req.RunID, req.Profile, strings.Join(a.profiles.Names(), ", "))
		}
		run.Profile = req.Profile
	}
	if req.Paper != nil {
		run.Paper = req.Paper
	}
	if run.UserID == "" {
		run.UserID = req.UserID
	}
	return a.store.SaveRun(ctx, run)
}

// Run responde a uma mensagem da thread e grava a troca na run.
func (a *Assistant) Run(ctx context.Context, req domain.AgentRequest) (string, error) {
	run, err := a.loadRun(ctx, req)
	if err != nil {
		return "", fmt.Errorf("load run %s: %w", req.RunID, err)
	}

	name := req.Profile
	if name == "" {
		name = run.Profile
	}
	profile, ok := a.profiles.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown profile %q", name)
	}

	// artigo da requisição, senão o guardado na run
	paper := req.Paper
	if paper == nil {
		paper = run.Paper
	}
	if profile.RequiresPaper && paper == nil {
		return "", fmt.Errorf("profile %s: %w", profile.Name, ErrNoPaper)
	}

	var history []StoredMessage
	if profile.History > 0 {
		history, err = a.store.RecentMessages(ctx, run.ID, profile.History)
		if err != nil {
			return "", err
		}
	}

	creq := CompletionRequest{
		Model:       profile.Model,
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
		System:      systemPrompt(profile, userLabel(req), paper, req.Context),
		Tools:       a.toolSpecs(profile),
	}
	for _, h := range history {
		creq.Messages = append(creq.Messages, Message{Role: h.Role, Content: h.Content})
	}
	creq.Messages = append(creq.Messages, Message{Role: RoleUser, Content: req.Message, Images: req.Images})

	answer, err := a.complete(ctx, creq)
	if err != nil {
		return "", err
	}

	run.Profile = profile.Name
	if profile.Next != "" {
		run.Profile = profile.Next
	}
	run.Paper = paper
	if run.UserID == "" {
		run.UserID = req.UserID
	}
	if err := a.store.SaveRun(ctx, run); err != nil {
		return "", err
	}
	now := a.now().UTC()
	err = a.store.AppendMessages(ctx, run.ID,
		StoredMessage{Role: RoleUser, Content: req.Message, CreatedAt: now},
		StoredMessage{Role: RoleAssistant, Content: answer, CreatedAt: now},
	)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (a *Assistant) complete(ctx context.Context, creq CompletionRequest) (string, error) {
	for round := 0; ; round++ {
		comp, err := a.completer.Complete(ctx, creq)
		if err != nil {
			return "", fmt.Errorf("complete: %w", err)
		}
		if len(comp.ToolCalls) == 0 {
			return comp.Content, nil
		}
		if round >= a.maxToolRounds {
			if comp.Content != "" {
				return comp.Content, nil
			}
			return "", ErrToolRounds
		}

		creq.Messages = append(creq.Messages, Message{Role: RoleAssistant, Content: comp.Content, ToolCalls: comp.ToolCalls})
		for _, tc := range comp.ToolCalls {
			creq.Messages = append(creq.Messages, Message{
				Role:       RoleTool,
				ToolCallID: tc.ID,
				Content:    a.callTool(ctx, tc),
			})
		}
	}
}

// callTool nunca falha: o erro vira texto para o modelo decidir o que fazer.
func (a *Assistant) callTool(ctx context.Context, tc ToolCall) string {
	t, ok := a.tools[tc.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", tc.Name)
	}
	out, err := t.Call(ctx, []byte(tc.Arguments))
	if err != nil {
		a.log.Warn("tool call failed", "tool", tc.Name, "err", err)
		return "error: " + err.Error()
	}
	return out
}

func (a *Assistant) toolSpecs(p Profile) []ToolSpec {
	var out []ToolSpec
	for _, name := range p.Tools {
		t, ok := a.tools[name]
		if !ok {
			a.log.Debug("profile tool not registered", "profile", p.Name, "tool", name)
			continue
		}
		out = append(out, t.Spec())
	}
	return out
}

func userLabel(req domain.AgentRequest) string {
	if req.UserName != "" {
		return req.UserName
	}
	return req.UserID
}

func systemPrompt(p Profile, user string, paper *domain.PaperRef, extra string) string {
	var title, id string
	if paper != nil {
		title, id = paper.Title, paper.ID
	}
	r := strings.NewReplacer("{user}", user, "{paper_title}", title, "{paper_id}", id)

	var b strings.Builder
	if p.Description != "" {
		b.WriteString(r.Replace(p.Description))
		b.WriteString("\n")
	}
	if len(p.Instructions) > 0 {
		b.WriteString("\n## Instructions\n")
		for _, in := range p.Instructions {
			b.WriteString("- ")
			b.WriteString(r.Replace(in))
			b.WriteString("\n")
		}
	}
	if extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}
