package application

import (
	"context"
	"errors"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

// ErrNoSlot indica que não houve vaga para chamar o agente dentro do prazo.
var ErrNoSlot = errors.New("no agent slot available")

// AgentSlots limita quantas chamadas ao agente rodam ao mesmo tempo,
// sem saber nada sobre a plataforma.
type AgentSlots struct {
	Pool domain.SlotPool
	// Wait <= 0 espera até o ctx encerrar.
	Wait time.Duration
}

// Acquire devolve o release da vaga ou ErrNoSlot.
func (s AgentSlots) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.Wait > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.Wait)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoSlot
	}
	return release, nil
}
