// Package discord liga o dispatcher ao Discord via discordgo.
package discord

import (
	"github.com/bwmarrin/discordgo"

	"chatbot-gateway/bot/dispatch/domain"
)

func channelKind(ch *discordgo.Channel) domain.ChannelKind {
	// canal desconhecido pode ser uma thread: não abrimos outra dentro dela
	if ch == nil {
		return domain.ChannelDirect
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return domain.ChannelThread
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return domain.ChannelDirect
	case discordgo.ChannelTypeGuildText:
		return domain.ChannelText
	}
	// fórum, voz etc: nunca abrimos thread ali
	return domain.ChannelDirect
}

// Normalize converte a mensagem do discordgo. ch pode ser nil quando o canal
// não está no state nem pôde ser buscado.
func Normalize(m *discordgo.Message, ch *discordgo.Channel, botID string) domain.InboundMessage {
	in := domain.InboundMessage{
		ID:              m.ID,
		GuildID:         m.GuildID,
		ChannelID:       m.ChannelID,
		ChannelKind:     channelKind(ch),
		Content:         m.Content,
		BotID:           botID,
		MentionEveryone: m.MentionEveryone,
	}
	if ch != nil {
		in.ChannelName = ch.Name
		if in.ChannelKind == domain.ChannelThread {
			in.ThreadOwnerID = ch.OwnerID
		}
	}
	if m.Author != nil {
		in.Author = domain.Author{ID: m.Author.ID, Name: m.Author.Username, Bot: m.Author.Bot}
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			in.MentionsBot = true
			break
		}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		in.Attachments = append(in.Attachments, domain.Attachment{
			Filename:    a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}
	return in
}
