package domain

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeUsage       Outcome = "usage"
	OutcomeBusy        Outcome = "busy"
	OutcomeOpened      Outcome = "opened"
	OutcomeAnswered    Outcome = "answered"
	OutcomeFailed      Outcome = "failed"
)

// State é o estado final do dispatcher para uma mensagem.
type State int

const (
	StateIdle State = iota
	StateRateChecked
	StateThreadResolved
	StateDispatched
	StateResponding
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRateChecked:
		return "rate_checked"
	case StateThreadResolved:
		return "thread_resolved"
	case StateDispatched:
		return "dispatched"
	case StateResponding:
		return "responding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Result é o desfecho de Handle. Stage é o último estado não terminal alcançado.
type Result struct {
	State   State
	Stage   State
	Outcome Outcome
}

// StatsEvent representa o desfecho de uma mensagem tratada pelo dispatcher.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Channel sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Outcome Outcome

	Guild   string
	Channel string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas.
//
// O dispatcher trata erro como best-effort (não derruba o atendimento).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
