// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit throttles discussion posting by new accounts. Two
// backends implement the same sliding-window contract: an in-process
// map for single-instance deployments and Redis for multi-instance.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the posting rate-limit contract. Allow consumes one slot
// for the key and reports whether the request is within budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Scope values for key construction.
const (
	ScopeUser       = "user"        // one window per user, all courses pooled
	ScopeUserCourse = "user_course" // one window per (user, course)
)

// Key builds the window key for a posting user under the configured
// scope.
func Key(scope, userID, courseID string) string {
	if scope == ScopeUserCourse {
		return userID + "|" + courseID
	}
	return userID
}

// MemoryLimiter is a sliding-window limiter backed by an in-process
// map. Safe for concurrent use.
type MemoryLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	cleanup  time.Duration
	stopCh   chan struct{}
}

type window struct {
	count     int
	expiresAt time.Time
}

// NewMemory creates an in-process limiter allowing limit requests per
// duration per key.
func NewMemory(limit int, duration time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow consumes one slot for the key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns how many requests are left for the key in the
// current window.
func (l *MemoryLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || time.Now().After(w.expiresAt) {
		return l.limit
	}
	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the window for a key.
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup goroutine.
func (l *MemoryLimiter) Stop() {
	close(l.stopCh)
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
