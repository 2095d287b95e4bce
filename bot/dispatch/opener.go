package dispatch

import (
	"context"

	"chatbot-gateway/bot/dispatch/domain"
)

// QuestionOpener abre uma thread por pergunta: o texto da menção vira o prompt.
type QuestionOpener struct {
	// Profile é o perfil do agente gravado na run da thread.
	Profile string
}

func (o QuestionOpener) Open(_ context.Context, msg domain.InboundMessage, text string) (domain.Opening, error) {
	if text == "" {
		return domain.Opening{}, domain.Usage(ReplyNoQuestion)
	}
	return domain.Opening{
		ThreadName: "Question: " + Truncate(text, 80),
		Greeting:   "<@" + msg.Author.ID + ">, Let me think...",
		Prompt:     text,
		Profile:    o.Profile,
	}, nil
}
