package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de discordgo ou redis.

import (
	"context"
	"time"
)

type Key string

// WindowResult é o resultado de uma checagem de janela deslizante.
type WindowResult struct {
	Allowed bool
	// Count é o número de requisições registradas na janela após a checagem.
	Count int
	// RetryAfter é quanto falta para a entrada mais antiga sair da janela.
	// Só é preenchido quando Allowed=false.
	RetryAfter time.Duration
}

// SlidingWindow conta requisições por chave dentro de uma janela móvel.
//
// A sequência limpar/contar/registrar deve ser atômica para a mesma chave.
// Uma requisição rejeitada não é registrada.
type SlidingWindow interface {
	Allow(ctx context.Context, key Key, window time.Duration, limit int) (WindowResult, error)
}

type Decision struct {
	Allowed bool
	// RetryAfter é a recomendação de espera quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Pacer segura envios para a plataforma (ex: limite de mensagens por canal).
type Pacer interface {
	Wait(ctx context.Context, key Key) error
}
