package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/hookgate/id"
)

func TestAllowUnlimited(t *testing.T) {
	l := NewWindowCounter()
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "k", 0, time.Minute)
		if err != nil || !ok {
			t.Fatal("limit 0 should always allow")
		}
	}
}

func TestAllowWindow(t *testing.T) {
	l := NewWindowCounter()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "k", 2, time.Minute); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "k", 2, time.Minute); ok {
		t.Fatal("third call should be denied")
	}
	if ok, _ := l.Allow(ctx, "other", 2, time.Minute); !ok {
		t.Fatal("keys must be independent")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "k", 2, time.Minute); !ok {
		t.Fatal("new window should allow again")
	}
}

func TestAllowConcurrentIsExact(t *testing.T) {
	l := NewWindowCounter()
	const limit = 50

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "k", limit, time.Hour); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != limit {
		t.Fatalf("expected exactly %d allowed, got %d", limit, allowed.Load())
	}
}

func TestReset(t *testing.T) {
	l := NewWindowCounter()
	ctx := context.Background()
	_, _ = l.Allow(ctx, "k", 1, time.Hour)
	if ok, _ := l.Allow(ctx, "k", 1, time.Hour); ok {
		t.Fatal("expected denial before reset")
	}
	l.Reset("k")
	if ok, _ := l.Allow(ctx, "k", 1, time.Hour); !ok {
		t.Fatal("expected allow after reset")
	}
}

func TestKey(t *testing.T) {
	p := id.NewProjectID()
	if got := Key(p, "10.0.0.1"); got != "rl:"+p.String()+":10.0.0.1" {
		t.Fatalf("unexpected key %q", got)
	}
}
