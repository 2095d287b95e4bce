package domain

import "context"

// PaperRef identifica o artigo discutido numa thread.
type PaperRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AgentRequest é o que o dispatcher entrega ao agente.
type AgentRequest struct {
	// RunID é o id da thread; uma conversa persistida por thread.
	RunID    string
	UserID   string
	UserName string
	// Profile vazio significa "o perfil já gravado na run, ou o padrão".
	Profile string
	Message string
	Images  []string
	// Paper só vem preenchido quando a thread acabou de ser aberta.
	Paper   *PaperRef
	Context string
}

// Agent é o agente LLM externo. O dispatcher só conhece Open e Run.
type Agent interface {
	// Open cria (ou atualiza) a run persistida sem chamar o modelo.
	Open(ctx context.Context, req AgentRequest) error
	Run(ctx context.Context, req AgentRequest) (string, error)
}

// Opening descreve uma thread nova a ser criada a partir de uma menção.
type Opening struct {
	ThreadName string
	Greeting   string
	// Prompt vazio: a thread é só aberta, sem chamada ao agente.
	Prompt   string
	FollowUp string
	Profile  string
	Paper    *PaperRef
	// Context vai junto do prompt de sistema (ex: metadados do artigo).
	Context string
}

// Opener valida a menção e decide o que a thread nova vai tratar.
type Opener interface {
	Open(ctx context.Context, msg InboundMessage, text string) (Opening, error)
}
