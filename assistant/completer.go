package assistant

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message é uma mensagem da conversa enviada ao modelo.
type Message struct {
	Role    Role
	Content string
	// Images são URLs; só valem para RoleUser.
	Images     []string
	ToolCalls  []ToolCall
	ToolCallID string
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type CompletionRequest struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	Messages    []Message
	Tools       []ToolSpec
}

type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Completer é o backend de chat completion. Uma chamada, sem estado.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Tool é uma função que o modelo pode chamar. Args chega como o JSON gerado pelo modelo.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Call        func(ctx context.Context, args json.RawMessage) (string, error)
}

func (t Tool) Spec() ToolSpec {
	return ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}
