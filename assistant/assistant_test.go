package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-gateway/bot/dispatch/domain"
)

type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []Completion
	err      error
	requests []CompletionRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	c.requests = append(c.requests, req)
	if c.err != nil {
		return Completion{}, c.err
	}
	if len(c.replies) == 0 {
		return Completion{Content: "default answer"}, nil
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next, nil
}

func newTestAssistant(t *testing.T, c Completer, opts ...Option) (*Assistant, *MemoryRunStore) {
	t.Helper()
	profiles, err := DefaultProfiles()
	require.NoError(t, err)
	store := NewMemoryRunStore()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(c, store, profiles, opts...), store
}

func TestRun_DefaultProfileAndPersistence(t *testing.T) {
	c := &scriptedCompleter{replies: []Completion{{Content: "first"}, {Content: "second"}}}
	a, store := newTestAssistant(t, c)
	ctx := context.Background()

	got, err := a.Run(ctx, domain.AgentRequest{RunID: "t1", UserID: "u1", UserName: "ana", Message: "hi", Images: []string{"https://img"}})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.Len(t, c.requests, 1)
	req := c.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Contains(t, req.System, "`ana`")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, []string{"https://img"}, req.Messages[0].Images)

	run, err := store.GetRun(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "code_assistant", run.Profile)
	assert.Equal(t, "u1", run.UserID)

	_, err = a.Run(ctx, domain.AgentRequest{RunID: "t1", UserID: "u1", Message: "again"})
	require.NoError(t, err)
	req = c.requests[1]
	require.Len(t, req.Messages, 3)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, "hi", req.Messages[0].Content)
	assert.Equal(t, RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, "first", req.Messages[1].Content)
	assert.Equal(t, "again", req.Messages[2].Content)
}

func TestRun_HistoryIsBounded(t *testing.T) {
	c := &scriptedCompleter{}
	a, _ := newTestAssistant(t, c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := a.Run(ctx, domain.AgentRequest{RunID: "t1", Message: "q"})
		require.NoError(t, err)
	}
	last := c.requests[len(c.requests)-1]
	// 4 de histórico + a mensagem atual
	assert.Len(t, last.Messages, 5)
}

func TestRun_FallsBackToStoredPaper(t *testing.T) {
	c := &scriptedCompleter{}
	a, _ := newTestAssistant(t, c)
	ctx := context.Background()

	paper := &domain.PaperRef{ID: "1706.03762", Title: "Attention Is All You Need"}
	require.NoError(t, a.Open(ctx, domain.AgentRequest{RunID: "t1", UserID: "u1", Profile: "arxiv_discussion", Paper: paper}))

	_, err := a.Run(ctx, domain.AgentRequest{RunID: "t1", UserID: "u1", Message: "what is new here?"})
	require.NoError(t, err)

	sys := c.requests[0].System
	assert.Contains(t, sys, "`title: Attention Is All You Need`")
	assert.Contains(t, sys, "`name: 1706.03762`")
}

func TestRun_RequiresPaper(t *testing.T) {
	c := &scriptedCompleter{}
	a, _ := newTestAssistant(t, c)

	_, err := a.Run(context.Background(), domain.AgentRequest{RunID: "t9", Profile: "arxiv_discussion", Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPaper))
	assert.Empty(t, c.requests)
}

func TestRun_SummarySwitchesToNextProfile(t *testing.T) {
	c := &scriptedCompleter{}
	a, store := newTestAssistant(t, c)
	ctx := context.Background()

	paper := &domain.PaperRef{ID: "2401.00001", Title: "Some Paper"}
	req := domain.AgentRequest{RunID: "t1", Profile: "arxiv_summary", Paper: paper, Message: "summarize", Context: "<arxiv_paper>{}</arxiv_paper>"}
	require.NoError(t, a.Open(ctx, req))
	_, err := a.Run(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, c.requests[0].System, "<arxiv_paper>")

	run, err := store.GetRun(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "arxiv_discussion", run.Profile)
	require.NotNil(t, run.Paper)
	assert.Equal(t, "2401.00001", run.Paper.ID)
}

func TestOpen_UnknownProfile(t *testing.T) {
	a, _ := newTestAssistant(t, &scriptedCompleter{})
	err := a.Open(context.Background(), domain.AgentRequest{RunID: "t1", Profile: "nope"})
	assert.ErrorContains(t, err, "known: arxiv_discussion, arxiv_summary, code_assistant")
}

func echoTool(calls *[]string) Tool {
	return Tool{
		Name:        "search_arxiv",
		Description: "search",
		Parameters:  map[string]any{"type": "object"},
		Call: func(_ context.Context, args json.RawMessage) (string, error) {
			*calls = append(*calls, string(args))
			return "results for " + string(args), nil
		},
	}
}

func TestRun_ToolLoop(t *testing.T) {
	var calls []string
	c := &scriptedCompleter{replies: []Completion{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "search_arxiv", Arguments: `{"query":"llm"}`}}},
		{Content: "here is what I found"},
	}}
	a, _ := newTestAssistant(t, c, WithTools(echoTool(&calls)))
	ctx := context.Background()

	paper := &domain.PaperRef{ID: "1", Title: "p"}
	got, err := a.Run(ctx, domain.AgentRequest{RunID: "t1", Profile: "arxiv_discussion", Paper: paper, Message: "find llm papers"})
	require.NoError(t, err)
	assert.Equal(t, "here is what I found", got)
	assert.Equal(t, []string{`{"query":"llm"}`}, calls)

	require.Len(t, c.requests, 2)
	assert.Len(t, c.requests[0].Tools, 1, "only registered tools are offered")
	second := c.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, RoleAssistant, second[1].Role)
	assert.Equal(t, RoleTool, second[2].Role)
	assert.Equal(t, "c1", second[2].ToolCallID)
	assert.True(t, strings.HasPrefix(second[2].Content, "results for"))
}

func TestRun_UnknownToolIsReportedToModel(t *testing.T) {
	c := &scriptedCompleter{replies: []Completion{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "rm_rf", Arguments: `{}`}}},
		{Content: "ok"},
	}}
	a, _ := newTestAssistant(t, c)

	_, err := a.Run(context.Background(), domain.AgentRequest{RunID: "t1", Message: "x"})
	require.NoError(t, err)
	assert.Contains(t, c.requests[1].Messages[2].Content, "unknown tool")
}

func TestRun_ToolRoundsExceeded(t *testing.T) {
	loop := Completion{ToolCalls: []ToolCall{{ID: "c", Name: "search_arxiv", Arguments: `{}`}}}
	c := &scriptedCompleter{replies: []Completion{loop, loop, loop}}
	var calls []string
	a, _ := newTestAssistant(t, c, WithTools(echoTool(&calls)), WithMaxToolRounds(2))

	_, err := a.Run(context.Background(), domain.AgentRequest{RunID: "t1", Message: "x"})
	assert.ErrorIs(t, err, ErrToolRounds)
	assert.Len(t, c.requests, 3)
}

func TestRun_CompleterErrorIsWrapped(t *testing.T) {
	boom := errors.New("upstream 500")
	a, store := newTestAssistant(t, &scriptedCompleter{err: boom})

	_, err := a.Run(context.Background(), domain.AgentRequest{RunID: "t1", Message: "x"})
	assert.ErrorIs(t, err, boom)

	msgs, err := store.RecentMessages(context.Background(), "t1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed runs are not persisted")
}
