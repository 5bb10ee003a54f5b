package ratelimit

import (
	"context"
	"testing"
	"time"
)

// newTestStore returns a MemoryStore on a controllable clock.
func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	t.Cleanup(s.Close)

	return s, &now
}

func TestLimiter_DeniesAtMax(t *testing.T) {
	store, _ := newTestStore(t)
	l := New(store)
	ctx := context.Background()
	rule := Rule{Max: 5, Window: time.Minute}
	key := Key("auth/login", "10.0.0.1")

	for i := 0; i < 5; i++ {
		result, err := l.Check(ctx, key, rule)
		if err != nil {
			t.Fatalf("check %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d denied below the limit", i+1)
		}
		if result.Remaining != 5-i {
			t.Fatalf("attempt %d: remaining = %d, want %d", i+1, result.Remaining, 5-i)
		}
		if err := l.Record(ctx, key, rule); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	result, err := l.Check(ctx, key, rule)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("sixth attempt allowed past Max=5")
	}
	if result.Remaining != 0 {
		t.Fatalf("denied result remaining = %d, want 0", result.Remaining)
	}
}

func TestLimiter_WindowReset(t *testing.T) {
	store, now := newTestStore(t)
	l := New(store)
	ctx := context.Background()
	rule := Rule{Max: 2, Window: time.Minute}
	key := Key("auth/login", "10.0.0.1")

	for i := 0; i < 2; i++ {
		if err := l.Record(ctx, key, rule); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if result, _ := l.Check(ctx, key, rule); result.Allowed {
		t.Fatal("expected denial at the limit")
	}

	*now = now.Add(61 * time.Second)

	result, err := l.Check(ctx, key, rule)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected fresh window after expiry")
	}
	if result.Remaining != 2 {
		t.Fatalf("fresh window remaining = %d, want 2", result.Remaining)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	l := New(store)
	ctx := context.Background()
	rule := Rule{Max: 1, Window: time.Minute}

	if err := l.Record(ctx, Key("auth/login", "10.0.0.1"), rule); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if result, _ := l.Check(ctx, Key("auth/login", "10.0.0.1"), rule); result.Allowed {
		t.Fatal("exhausted key should be denied")
	}
	if result, _ := l.Check(ctx, Key("auth/login", "10.0.0.2"), rule); !result.Allowed {
		t.Fatal("other client IP should be unaffected")
	}
	if result, _ := l.Check(ctx, Key("auth/register", "10.0.0.1"), rule); !result.Allowed {
		t.Fatal("other endpoint should be unaffected")
	}
}

func TestMemoryStore_ReapRemovesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	defer s.Close()

	ctx := context.Background()
	_, _, _ = s.Incr(ctx, "live", time.Hour)
	_, _, _ = s.Incr(ctx, "dead", time.Second)

	now = now.Add(time.Minute)
	s.reapExpired()

	if count, _, _ := s.Get(ctx, "live", time.Hour); count != 1 {
		t.Fatalf("live entry reaped; count = %d", count)
	}

	s.mu.Lock()
	_, deadPresent := s.entries["dead"]
	s.mu.Unlock()
	if deadPresent {
		t.Fatal("expired entry survived the reaper")
	}
}
