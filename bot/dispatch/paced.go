package dispatch

import (
	"context"

	"chatbot-gateway/bot/dispatch/domain"
)

// PacedMessenger espera o Pacer do canal antes de cada envio.
type PacedMessenger struct {
	domain.Messenger
	Pacer domain.Pacer
}

func (p PacedMessenger) Send(ctx context.Context, channelID, content string) error {
	if p.Pacer != nil {
		if err := p.Pacer.Wait(ctx, domain.Key(channelID)); err != nil {
			return err
		}
	}
	return p.Messenger.Send(ctx, channelID, content)
}

func (p PacedMessenger) Reply(ctx context.Context, to domain.InboundMessage, content string) error {
	if p.Pacer != nil {
		if err := p.Pacer.Wait(ctx, domain.Key(to.ChannelID)); err != nil {
			return err
		}
	}
	return p.Messenger.Reply(ctx, to, content)
}
