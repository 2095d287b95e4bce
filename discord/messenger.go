package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"chatbot-gateway/bot/dispatch/domain"
)

// ThreadArchiveMinutes é o auto-archive das threads abertas pelo bot.
const ThreadArchiveMinutes = 60

// Messenger implementa domain.Messenger sobre a REST API do discordgo.
type Messenger struct {
	s *discordgo.Session
}

func NewMessenger(s *discordgo.Session) *Messenger { return &Messenger{s: s} }

func reference(to domain.InboundMessage) *discordgo.MessageReference {
	return &discordgo.MessageReference{
		MessageID: to.ID,
		ChannelID: to.ChannelID,
		GuildID:   to.GuildID,
	}
}

func (m *Messenger) Reply(ctx context.Context, to domain.InboundMessage, content string) error {
	if _, err := m.s.ChannelMessageSendReply(to.ChannelID, content, reference(to), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord reply: %w", err)
	}
	return nil
}

func (m *Messenger) Send(ctx context.Context, channelID, content string) error {
	if _, err := m.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (m *Messenger) CreateThread(ctx context.Context, from domain.InboundMessage, name string) (domain.Thread, error) {
	ch, err := m.s.MessageThreadStart(from.ChannelID, from.ID, name, ThreadArchiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, fmt.Errorf("discord create thread: %w", err)
	}
	return domain.Thread{ID: ch.ID, Name: ch.Name}, nil
}

func (m *Messenger) Typing(ctx context.Context, channelID string) error {
	return m.s.ChannelTyping(channelID, discordgo.WithContext(ctx))
}
