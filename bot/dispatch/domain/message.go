package domain

import "context"

type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelThread
	ChannelDirect
)

type Author struct {
	ID   string
	Name string
	Bot  bool
}

type Attachment struct {
	Filename    string
	URL         string
	ContentType string
}

// InboundMessage é a mensagem recebida da plataforma já normalizada.
type InboundMessage struct {
	ID        string
	GuildID   string
	ChannelID string
	// ChannelName serve só para log.
	ChannelName string
	ChannelKind ChannelKind
	// ThreadOwnerID só é preenchido quando ChannelKind=ChannelThread.
	ThreadOwnerID string

	Author      Author
	Content     string
	Attachments []Attachment

	// BotID é o id do próprio bot na plataforma.
	BotID           string
	MentionsBot     bool
	MentionEveryone bool
}

type Thread struct {
	ID   string
	Name string
}

// Messenger são as operações da plataforma usadas pelo dispatcher.
type Messenger interface {
	Reply(ctx context.Context, to InboundMessage, content string) error
	Send(ctx context.Context, channelID, content string) error
	CreateThread(ctx context.Context, from InboundMessage, name string) (Thread, error)
	// Typing é best-effort; erros são ignorados pelo chamador.
	Typing(ctx context.Context, channelID string) error
}
