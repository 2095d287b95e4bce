package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"chatbot-gateway/bot/dispatch/domain"
)

type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.Result
}

// Bot mantém a sessão do gateway e entrega cada MessageCreate ao Handler.
type Bot struct {
	session *discordgo.Session
	log     *slog.Logger

	mu      sync.Mutex
	handler Handler
	ctx     context.Context
	stopped bool
	wg      sync.WaitGroup
}

// NewSession cria a sessão com os intents que o bot precisa (conteúdo das mensagens incluso).
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return s, nil
}

func NewBot(s *discordgo.Session, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{session: s, log: log}
}

// Run abre o gateway e bloqueia até ctx encerrar. Mensagens em andamento
// terminam antes do retorno.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	b.mu.Lock()
	b.handler = h
	b.ctx = ctx
	b.stopped = false
	b.mu.Unlock()

	remove := b.session.AddHandler(b.onMessageCreate)
	defer remove()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.log.Info("discord connected", "user", b.session.State.User.Username)

	<-ctx.Done()
	b.stop()

	if err := b.session.Close(); err != nil {
		b.log.Warn("discord close", "err", err)
	}
	b.wg.Wait()
	return nil
}

// enter registra uma mensagem em andamento. O Add acontece sob mu, então
// nenhum evento entra no WaitGroup depois que stop marcou o encerramento.
func (b *Bot) enter() (Handler, context.Context, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.handler == nil || b.ctx.Err() != nil {
		return nil, nil, false
	}
	b.wg.Add(1)
	return b.handler, b.ctx, true
}

func (b *Bot) stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	h, ctx, ok := b.enter()
	if !ok {
		return
	}
	defer b.wg.Done()

	// mensagens do próprio bot não precisam nem do lookup do canal
	botID := s.State.User.ID
	if m.Author == nil || m.Author.ID == botID {
		return
	}

	ch := b.channel(ctx, s, m.ChannelID)
	msg := Normalize(m.Message, ch, botID)

	started := time.Now()
	res := h.Handle(ctx, msg)
	if res.Outcome != domain.OutcomeIgnored {
		b.log.Debug("message handled",
			"message", msg.ID,
			"state", res.State.String(),
			"stage", res.Stage.String(),
			"outcome", string(res.Outcome),
			"elapsed", time.Since(started),
		)
	}
}

func (b *Bot) channel(ctx context.Context, s *discordgo.Session, id string) *discordgo.Channel {
	if ch, err := s.State.Channel(id); err == nil {
		return ch
	}
	ch, err := s.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		b.log.Warn("channel lookup failed", "channel", id, "err", err)
		return nil
	}
	return ch
}
