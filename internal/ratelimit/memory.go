// Package ratelimit limits inbound requests per client key over a fixed
// window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults applied to public endpoints.
const (
	DefaultLimit  = 15
	DefaultWindow = 60 * time.Second
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Memory counts requests per key in process memory.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	done    chan struct{}
}

type window struct {
	count int
	start time.Time
}

// NewMemory creates a Memory limiter allowing limit requests per period.
// A non-positive period selects DefaultWindow.
func NewMemory(limit int, period time.Duration) *Memory {
	if period <= 0 {
		period = DefaultWindow
	}
	l := &Memory{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		done:    make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// Close stops the background cleanup goroutine.
func (l *Memory) Close() {
	close(l.done)
}

// Allow records one request for key and reports whether it is within limit.
func (l *Memory) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// cleanup periodically drops windows that have expired.
func (l *Memory) cleanup() {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.period {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}
