package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript só apaga a chave se ela ainda guarda o token de quem liberou.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisThreads guarda as threads ocupadas no Redis (SET NX + lease).
//
// O lease limita por quanto tempo uma instância que caiu no meio do
// atendimento deixa a thread presa. Deve ser maior que a espera por slot
// somada ao timeout do agente. O valor da chave é o token do dono.
type RedisThreads struct {
	rdb    redis.Cmdable
	prefix string
	lease  time.Duration
}

type RedisThreadsOption func(*RedisThreads)

func WithThreadsPrefix(prefix string) RedisThreadsOption {
	return func(r *RedisThreads) { r.prefix = strings.Trim(prefix, ":") }
}

func WithLease(d time.Duration) RedisThreadsOption {
	return func(r *RedisThreads) { r.lease = d }
}

func NewRedisThreads(rdb redis.Cmdable, opts ...RedisThreadsOption) *RedisThreads {
	r := &RedisThreads{
		rdb:    rdb,
		prefix: "threads:active",
		lease:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisThreads) key(threadID string) string {
	return r.prefix + ":" + threadID
}

func (r *RedisThreads) TryAcquire(ctx context.Context, threadID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, r.key(threadID), token, r.lease).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire thread %s: %w", threadID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisThreads) Release(ctx context.Context, threadID, token string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{r.key(threadID)}, token).Err(); err != nil {
		return fmt.Errorf("release thread %s: %w", threadID, err)
	}
	return nil
}
