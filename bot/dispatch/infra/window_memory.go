package infra

import (
	"context"
	"sync"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

// MemoryWindow é a janela deslizante em memória, com a mesma semântica do RedisWindow.
// Útil para testes e para rodar uma instância só.
type MemoryWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

type windowEntry struct {
	hits    []time.Time
	expires time.Time
}

type WindowOption func(*windowConfig)

type windowConfig struct {
	now    func() time.Time
	prefix string
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) WindowOption {
	return func(c *windowConfig) { c.now = now }
}

// WithKeyPrefix só é usado pelo RedisWindow.
func WithKeyPrefix(prefix string) WindowOption {
	return func(c *windowConfig) { c.prefix = prefix }
}

func newWindowConfig(opts []WindowOption) windowConfig {
	cfg := windowConfig{now: time.Now, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func NewMemoryWindow(opts ...WindowOption) *MemoryWindow {
	cfg := newWindowConfig(opts)
	return &MemoryWindow{
		entries: make(map[string]*windowEntry),
		now:     cfg.now,
	}
}

// Allow implementa domain.SlidingWindow.
func (w *MemoryWindow) Allow(_ context.Context, key domain.Key, window time.Duration, limit int) (domain.WindowResult, error) {
	now := w.now()
	cutoff := now.Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	ent, ok := w.entries[string(key)]
	if !ok || !now.Before(ent.expires) {
		ent = &windowEntry{}
		w.entries[string(key)] = ent
	}

	// remove tudo com timestamp <= now-window (mesmo critério do ZREMRANGEBYSCORE)
	i := 0
	for i < len(ent.hits) && !ent.hits[i].After(cutoff) {
		i++
	}
	ent.hits = ent.hits[i:]

	res := domain.WindowResult{Count: len(ent.hits)}
	if len(ent.hits) < limit {
		ent.hits = append(ent.hits, now)
		res.Allowed = true
		res.Count++
	} else if len(ent.hits) > 0 {
		res.RetryAfter = ent.hits[0].Add(window).Sub(now)
	}
	ent.expires = now.Add(window)
	return res, nil
}

func (w *MemoryWindow) Cleanup() {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for k, ent := range w.entries {
		if !now.Before(ent.expires) {
			delete(w.entries, k)
		}
	}
}

func (w *MemoryWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// StartJanitor inicia uma goroutine que limpa usuários inativos periodicamente.
// Pare cancelando o contexto.
func (w *MemoryWindow) StartJanitor(ctx DoneContext, every time.Duration) {
	startJanitor(ctx, every, w.Cleanup)
}

// DoneContext é o mínimo necessário para aceitar context.Context.
type DoneContext interface {
	Done() <-chan struct{}
}

func startJanitor(ctx DoneContext, every time.Duration, fn func()) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}
