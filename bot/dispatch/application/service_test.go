package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatbot-gateway/bot/dispatch/domain"
)

type fakeWindow struct {
	res   domain.WindowResult
	err   error
	calls int

	gotWindow time.Duration
	gotLimit  int
}

func (f *fakeWindow) Allow(_ context.Context, _ domain.Key, window time.Duration, limit int) (domain.WindowResult, error) {
	f.calls++
	f.gotWindow = window
	f.gotLimit = limit
	return f.res, f.err
}

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	svc := Service{}
	dec, err := svc.Decide(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_PassesWindowAndLimit(t *testing.T) {
	store := &fakeWindow{res: domain.WindowResult{Allowed: true}}
	svc := Service{Store: store, Window: 30 * time.Second, Limit: 3}

	dec, err := svc.Decide(context.Background(), "k")
	if err != nil || !dec.Allowed {
		t.Fatalf("expected allowed, got %+v err=%v", dec, err)
	}
	if store.gotWindow != 30*time.Second || store.gotLimit != 3 {
		t.Fatalf("unexpected window/limit: %s/%d", store.gotWindow, store.gotLimit)
	}
}

func TestService_Decide_DefaultWindow(t *testing.T) {
	store := &fakeWindow{res: domain.WindowResult{Allowed: true}}
	svc := Service{Store: store, Limit: 10}
	_, _ = svc.Decide(context.Background(), "k")
	if store.gotWindow != 60*time.Second {
		t.Fatalf("expected default window 60s, got %s", store.gotWindow)
	}
}

func TestService_Decide_BlocksWithRetryAfterFromStore(t *testing.T) {
	store := &fakeWindow{res: domain.WindowResult{Allowed: false, RetryAfter: 12 * time.Second}}
	svc := Service{Store: store, Window: time.Minute, Limit: 1}

	dec, err := svc.Decide(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 12*time.Second {
		t.Fatalf("expected RetryAfter=12s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_BlocksWithWindowWhenNoHint(t *testing.T) {
	store := &fakeWindow{res: domain.WindowResult{Allowed: false}}
	svc := Service{Store: store, Window: 2500 * time.Millisecond, Limit: 1}

	dec, _ := svc.Decide(context.Background(), "k")
	if dec.RetryAfter != 2500*time.Millisecond {
		t.Fatalf("expected RetryAfter=2.5s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_FailsClosedByDefault(t *testing.T) {
	store := &fakeWindow{err: errors.New("dial tcp: connection refused")}
	svc := Service{Store: store, Limit: 10}

	dec, err := svc.Decide(context.Background(), "k")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected fail-closed decision")
	}
}

func TestService_Decide_FailOpen(t *testing.T) {
	store := &fakeWindow{err: errors.New("timeout")}
	svc := Service{Store: store, Limit: 10, FailOpen: true}

	dec, err := svc.Decide(context.Background(), "k")
	if err == nil {
		t.Fatalf("expected the store error to be reported")
	}
	if !dec.Allowed {
		t.Fatalf("expected fail-open decision")
	}
}
