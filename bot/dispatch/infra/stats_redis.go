package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbot-gateway/bot/dispatch/domain"

	"github.com/redis/go-redis/v9"
)

// Buckets aceitos por WithStatsBucket.
const (
	BucketMinute = "minute"
	BucketHour   = "hour"
	BucketNone   = "none"
)

// RedisStatsStore conta desfechos do dispatcher em hashes do Redis.
//
// Chaves (com prefix "bot:stats"):
//
//	bot:stats:rate                 allowed / denied, cumulativo
//	bot:stats:outcome              desfecho -> total, cumulativo
//	bot:stats:minute:200601021504  desfecho -> total na janela, expira em ttl
//	bot:stats:guild:<id>           desfecho -> total no servidor, cumulativo
//	bot:stats:key:<user>           desfecho -> total do usuário, expira em ttl
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	ttl    time.Duration
	bucket string

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "bot:stats",
		ttl:    24 * time.Hour,
		bucket: BucketMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidBucket informa se b é um valor aceito por WithStatsBucket.
func ValidBucket(b string) bool {
	switch strings.ToLower(strings.TrimSpace(b)) {
	case BucketMinute, BucketHour, BucketNone:
		return true
	}
	return false
}

func (s *RedisStatsStore) bucketKey(at time.Time) string {
	switch s.bucket {
	case BucketMinute:
		return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	case BucketHour:
		return fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
	}
	return ""
}

// outcomeField nomeia o campo do desfecho; eventos sem Outcome caem na decisão de rate.
func outcomeField(ev domain.StatsEvent) string {
	if ev.Outcome != "" {
		return string(ev.Outcome)
	}
	if ev.Allowed {
		return "allowed"
	}
	return string(domain.OutcomeRateLimited)
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
	}
	field := outcomeField(ev)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":rate", decision, 1)
	pipe.HIncrBy(ctx, s.prefix+":outcome", field, 1)

	if k := s.bucketKey(at); k != "" {
		pipe.HIncrBy(ctx, k, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
	}

	if ev.Guild != "" {
		pipe.HIncrBy(ctx, s.prefix+":guild:"+ev.Guild, field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			userKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, userKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, userKey, s.ttl)
			}
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}
