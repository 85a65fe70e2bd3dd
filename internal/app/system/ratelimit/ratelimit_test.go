package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key(ScopeUser, "u1", "c1"); got != "u1" {
		t.Errorf("user scope key: got %q", got)
	}
	if got := Key(ScopeUserCourse, "u1", "c1"); got != "u1|c1" {
		t.Errorf("user_course scope key: got %q", got)
	}
}

func TestMemoryLimiter_Limit(t *testing.T) {
	l := NewMemory(3, time.Minute)
	defer l.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be within budget", i+1)
		}
	}
	ok, err := l.Allow(ctx, "alice")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Error("fourth request should be rejected")
	}

	// Other keys have their own windows.
	ok, _ = l.Allow(ctx, "bob")
	if !ok {
		t.Error("separate key should not share the window")
	}
}

func TestMemoryLimiter_WindowExpiry(t *testing.T) {
	l := NewMemory(1, 20*time.Millisecond)
	defer l.Stop()

	ctx := context.Background()
	if ok, _ := l.Allow(ctx, "alice"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := l.Allow(ctx, "alice"); ok {
		t.Fatal("second request should be rejected")
	}

	time.Sleep(30 * time.Millisecond)
	if ok, _ := l.Allow(ctx, "alice"); !ok {
		t.Error("request after window expiry should pass")
	}
}

func TestMemoryLimiter_RemainingAndReset(t *testing.T) {
	l := NewMemory(5, time.Minute)
	defer l.Stop()

	ctx := context.Background()
	if got := l.Remaining("alice"); got != 5 {
		t.Errorf("fresh key remaining: got %d", got)
	}
	_, _ = l.Allow(ctx, "alice")
	_, _ = l.Allow(ctx, "alice")
	if got := l.Remaining("alice"); got != 3 {
		t.Errorf("remaining after two: got %d", got)
	}

	l.Reset("alice")
	if got := l.Remaining("alice"); got != 5 {
		t.Errorf("remaining after reset: got %d", got)
	}
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := NewMemory(50, time.Minute)
	defer l.Stop()

	ctx := context.Background()
	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Allow(ctx, "shared")
			allowed <- ok
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("allowed %d of 100, want exactly 50", count)
	}
}
