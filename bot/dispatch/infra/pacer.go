package infra

import (
	"context"
	"sync"
	"time"

	"chatbot-gateway/bot/dispatch/domain"

	"golang.org/x/time/rate"
)

// SendPacer é um token bucket (x/time/rate) por chave com limpeza periódica.
// No bot a chave é o canal: espaça os envios de respostas quebradas em vários
// pedaços para não estourar o limite de mensagens por canal da plataforma.
type SendPacer struct {
	mu           sync.Mutex
	entries      map[string]*pacerEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type pacerEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type PacerOption func(*SendPacer)

func WithIdleTTL(d time.Duration) PacerOption {
	return func(s *SendPacer) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) PacerOption {
	return func(s *SendPacer) { s.cleanupEvery = d }
}

func NewSendPacer(rps float64, burst int, opts ...PacerOption) *SendPacer {
	s := &SendPacer{
		entries:      make(map[string]*pacerEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait implementa domain.Pacer: bloqueia até haver token para a chave ou o ctx encerrar.
func (s *SendPacer) Wait(ctx context.Context, key domain.Key) error {
	return s.Get(string(key)).Wait(ctx)
}

func (s *SendPacer) Get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &pacerEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *SendPacer) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa canais inativos periodicamente.
// Pare cancelando o contexto.
func (s *SendPacer) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
