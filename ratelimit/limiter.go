// Package ratelimit bounds inbound traffic per project and client address
// with fixed-window counters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/hookgate/id"
)

// Limiter decides whether one more request under key fits in the window.
// The increment and the check are a single atomic step.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Key builds the counter key for a project and client address.
func Key(projectID id.ID, ip string) string {
	return "rl:" + projectID.String() + ":" + ip
}

// WindowCounter is an in-process fixed-window limiter.
type WindowCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewWindowCounter creates an in-process limiter.
func NewWindowCounter() *WindowCounter {
	return &WindowCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts the request and reports whether it is within limit. A limit
// of 0 means unlimited.
func (l *WindowCounter) Allow(_ context.Context, key string, limit int, period time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(period)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++
	return w.count <= limit, nil
}

// Reset clears the counter for key.
func (l *WindowCounter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows. Called with mu held, only when a new window
// opens, so the map stays bounded by the number of active keys.
func (l *WindowCounter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
