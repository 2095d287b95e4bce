package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

// ThreadService concentra a regra de aquisição/liberação de threads em andamento,
// sem saber nada sobre a plataforma.
type ThreadService struct {
	Tracker domain.ThreadTracker
	// ReleaseTimeout limita o Release; ele roda fora do ctx da requisição
	// para funcionar mesmo depois de um timeout ou cancelamento.
	ReleaseTimeout time.Duration
	Logger         *slog.Logger
}

// Acquire tenta marcar a thread como ocupada.
// Retorna (release, ok, err). Se ok=false, nada foi adquirido e release é nil.
// release pode ser chamado mais de uma vez; só a primeira chamada libera.
func (s ThreadService) Acquire(ctx context.Context, threadID string) (func(), bool, error) {
	if s.Tracker == nil {
		return func() {}, true, nil
	}

	token, ok, err := s.Tracker.TryAcquire(ctx, threadID)
	if err != nil || !ok {
		return nil, false, err
	}

	timeout := s.ReleaseTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	detached := context.WithoutCancel(ctx)

	var once sync.Once
	release := func() {
		once.Do(func() {
			relCtx, cancel := context.WithTimeout(detached, timeout)
			defer cancel()
			if err := s.Tracker.Release(relCtx, threadID, token); err != nil {
				s.logger().Error("thread release failed", "thread", threadID, "err", err)
			}
		})
	}
	return release, true, nil
}

func (s ThreadService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
