package infra

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryThreads guarda as threads ocupadas no processo.
//
// Não sobrevive a restart e não é compartilhado entre instâncias;
// para mais de uma instância use RedisThreads.
type MemoryThreads struct {
	mu     sync.Mutex
	active map[string]string
}

func NewMemoryThreads() *MemoryThreads {
	return &MemoryThreads{active: make(map[string]string)}
}

func (m *MemoryThreads) TryAcquire(_ context.Context, threadID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.active[threadID]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	m.active[threadID] = token
	return token, true, nil
}

func (m *MemoryThreads) Release(_ context.Context, threadID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[threadID] == token {
		delete(m.active, threadID)
	}
	return nil
}

func (m *MemoryThreads) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.active))
	for id := range m.active {
		out = append(out, id)
	}
	return out
}
