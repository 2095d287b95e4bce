package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

var ErrRunNotFound = errors.New("run not found")

// Run é a conversa persistida de uma thread.
type Run struct {
	ID        string
	UserID    string
	Profile   string
	Paper     *domain.PaperRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

type StoredMessage struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

type RunStore interface {
	GetRun(ctx context.Context, id string) (Run, error)
	SaveRun(ctx context.Context, run Run) error
	AppendMessages(ctx context.Context, runID string, msgs ...StoredMessage) error
	// RecentMessages devolve as últimas n mensagens em ordem cronológica.
	RecentMessages(ctx context.Context, runID string, n int) ([]StoredMessage, error)
}

// MemoryRunStore guarda runs no processo. Para testes e para o consolebot.
type MemoryRunStore struct {
	mu       sync.Mutex
	runs     map[string]Run
	messages map[string][]StoredMessage
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:     make(map[string]Run),
		messages: make(map[string][]StoredMessage),
	}
}

func (s *MemoryRunStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (s *MemoryRunStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.runs[run.ID]; ok && run.CreatedAt.IsZero() {
		run.CreatedAt = prev.CreatedAt
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryRunStore) AppendMessages(_ context.Context, runID string, msgs ...StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[runID] = append(s.messages[runID], msgs...)
	return nil
}

func (s *MemoryRunStore) RecentMessages(_ context.Context, runID string, n int) ([]StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[runID]
	if n <= 0 {
		return nil, nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]StoredMessage, len(all))
	copy(out, all)
	return out, nil
}
