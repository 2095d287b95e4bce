package application

import (
	"context"
	"fmt"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre a plataforma, apenas retorna uma decisão.
type Service struct {
	Store  domain.SlidingWindow
	Window time.Duration
	Limit  int
	// FailOpen libera a mensagem quando o store falha. O padrão é bloquear.
	FailOpen bool
}

// Decide sempre devolve uma Decision utilizável; o erro só informa que o store falhou
// e a decisão saiu da política de falha.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil || s.Limit <= 0 {
		return domain.Decision{Allowed: true}, nil
	}
	if s.Window <= 0 {
		s.Window = 60 * time.Second
	}

	res, err := s.Store.Allow(ctx, key, s.Window, s.Limit)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		return domain.Decision{Allowed: s.FailOpen}, err
	}
	if res.Allowed {
		return domain.Decision{Allowed: true}, nil
	}
	retry := res.RetryAfter
	if retry <= 0 {
		retry = s.Window
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}, nil
}
