package infra

import (
	"context"
	"strings"
	"testing"
	"time"

	"chatbot-gateway/bot/dispatch/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStatsStore_CountsByOutcome(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "u1", Allowed: true, Outcome: domain.OutcomeAnswered})
	_ = s.Record(ctx, domain.StatsEvent{Key: "u1", Allowed: false, Outcome: domain.OutcomeRateLimited})
	_ = s.Record(ctx, domain.StatsEvent{Key: "u2", Allowed: true, Outcome: domain.OutcomeAnswered})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got := s.ByOutcome()[domain.OutcomeAnswered]; got != 2 {
		t.Fatalf("expected 2 answered, got %d", got)
	}
	if got := s.ByKey()["u1"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected u1 counters %+v", got)
	}
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "u1", Allowed: true})
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key counters")
	}
}

func newStatsRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStatsStore_Record(t *testing.T) {
	mr, rdb := newStatsRedis(t)

	s := NewRedisStatsStore(rdb,
		WithStatsPrefix("stats:"),
		WithStatsTTL(time.Hour),
		WithStatsTrackKeys(true),
	)
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	ctx := context.Background()

	err := s.Record(ctx, domain.StatsEvent{
		Key: "u1", Allowed: false, Outcome: domain.OutcomeRateLimited, Guild: "g1", At: at,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = s.Record(ctx, domain.StatsEvent{Key: "u1", Allowed: true, Outcome: domain.OutcomeAnswered, Guild: "g1", At: at})

	if got := mr.HGet("stats:rate", "denied"); got != "1" {
		t.Fatalf("expected denied=1, got %q", got)
	}
	if got := mr.HGet("stats:rate", "allowed"); got != "1" {
		t.Fatalf("expected allowed=1, got %q", got)
	}
	if got := mr.HGet("stats:outcome", "rate_limited"); got != "1" {
		t.Fatalf("expected rate_limited=1, got %q", got)
	}
	if got := mr.HGet("stats:guild:g1", "answered"); got != "1" {
		t.Fatalf("expected guild outcome counter, got %q", got)
	}
	if got := mr.HGet("stats:minute:202405011230", "answered"); got != "1" {
		t.Fatalf("expected outcome in the minute bucket, got %q", got)
	}
	if got := mr.HGet("stats:key:u1", "rate_limited"); got != "1" {
		t.Fatalf("expected per-user outcome, got %q", got)
	}
	if ttl := mr.TTL("stats:key:u1"); ttl != time.Hour {
		t.Fatalf("expected key ttl 1h, got %s", ttl)
	}
}

func TestRedisStatsStore_Buckets(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	ev := domain.StatsEvent{Allowed: true, Outcome: domain.OutcomeOpened, At: at}

	t.Run("hour", func(t *testing.T) {
		mr, rdb := newStatsRedis(t)
		s := NewRedisStatsStore(rdb, WithStatsBucket(" Hour "))
		if err := s.Record(context.Background(), ev); err != nil {
			t.Fatalf("record: %v", err)
		}
		if got := mr.HGet("bot:stats:hour:2024050112", "opened"); got != "1" {
			t.Fatalf("expected hour bucket, got %q", got)
		}
	})

	t.Run("none", func(t *testing.T) {
		mr, rdb := newStatsRedis(t)
		s := NewRedisStatsStore(rdb, WithStatsBucket(BucketNone))
		if err := s.Record(context.Background(), ev); err != nil {
			t.Fatalf("record: %v", err)
		}
		for _, k := range mr.Keys() {
			if strings.Contains(k, ":minute:") || strings.Contains(k, ":hour:") {
				t.Fatalf("expected no time bucket, got key %s", k)
			}
		}
	})
}

func TestRedisStatsStore_EventWithoutOutcomeUsesDecision(t *testing.T) {
	mr, rdb := newStatsRedis(t)
	s := NewRedisStatsStore(rdb)

	_ = s.Record(context.Background(), domain.StatsEvent{Allowed: false})
	if got := mr.HGet("bot:stats:outcome", "rate_limited"); got != "1" {
		t.Fatalf("expected denied event counted as rate_limited, got %q", got)
	}
}

func TestValidBucket(t *testing.T) {
	for _, b := range []string{"minute", "HOUR", "none"} {
		if !ValidBucket(b) {
			t.Fatalf("expected %q valid", b)
		}
	}
	if ValidBucket("day") {
		t.Fatalf("expected day invalid")
	}
}
