package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbot-gateway/bot/dispatch/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript limpa, conta e registra numa única execução atômica.
// Retorna {allowed, count, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, member)
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local retry = 0
if allowed == 0 then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
end
return {allowed, count, retry}
`)

// RedisWindow implementa a janela deslizante em um ZSET por usuário,
// compartilhado entre instâncias do bot.
type RedisWindow struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisWindow(rdb redis.Scripter, opts ...WindowOption) *RedisWindow {
	cfg := newWindowConfig(opts)
	return &RedisWindow{
		rdb:    rdb,
		prefix: strings.Trim(cfg.prefix, ":"),
		now:    cfg.now,
	}
}

func (w *RedisWindow) key(k domain.Key) string {
	return w.prefix + ":" + string(k)
}

// Allow implementa domain.SlidingWindow.
func (w *RedisWindow) Allow(ctx context.Context, key domain.Key, window time.Duration, limit int) (domain.WindowResult, error) {
	now := w.now().UnixMilli()
	// membro único: duas requisições no mesmo milissegundo não colidem
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	raw, err := slidingWindowScript.Run(ctx, w.rdb,
		[]string{w.key(key)},
		now, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return domain.WindowResult{}, fmt.Errorf("sliding window %q: %w", key, err)
	}
	if len(raw) != 3 {
		return domain.WindowResult{}, fmt.Errorf("sliding window %q: unexpected reply %v", key, raw)
	}

	return domain.WindowResult{
		Allowed:    raw[0] == 1,
		Count:      int(raw[1]),
		RetryAfter: time.Duration(raw[2]) * time.Millisecond,
	}, nil
}
