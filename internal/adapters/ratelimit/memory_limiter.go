// Package ratelimit provides fixed-window per-client rate limiters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// Config configures rate limiting
type Config struct {
	// Window is the length of one counting window
	Window time.Duration
	// MaxRequests is the number of evaluations allowed per client per window
	MaxRequests int
	// CleanupInterval is how often expired windows are swept
	CleanupInterval time.Duration
}

// DefaultConfig returns the stock limits: 10 requests per minute
func DefaultConfig() Config {
	return Config{
		Window:          time.Minute,
		MaxRequests:     10,
		CleanupInterval: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter tracks windows per client in process memory
type MemoryLimiter struct {
	cfg      Config
	mu       sync.Mutex
	clients  map[string]*window
	logger   *zap.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter creates a limiter and starts its sweeper
func NewMemoryLimiter(cfg Config, logger *zap.Logger) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:     cfg.withDefaults(),
		clients: make(map[string]*window),
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow counts a request for the client and reports whether it may proceed
func (l *MemoryLimiter) Allow(_ context.Context, clientID string) core.RateDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[clientID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.cfg.Window)}
		l.clients[clientID] = w
		return core.RateDecision{
			Allowed:   true,
			Limit:     l.cfg.MaxRequests,
			Remaining: l.cfg.MaxRequests - 1,
			ResetIn:   l.cfg.Window,
		}
	}

	if w.count >= l.cfg.MaxRequests {
		return core.RateDecision{
			Allowed:   false,
			Limit:     l.cfg.MaxRequests,
			Remaining: 0,
			ResetIn:   w.resetAt.Sub(now),
		}
	}

	w.count++
	return core.RateDecision{
		Allowed:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests - w.count,
		ResetIn:   w.resetAt.Sub(now),
	}
}

// Sweep removes every window that has ended
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// cleanup removes stale entries periodically
func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				l.logger.Debug("Swept expired rate limit windows", zap.Int("removed", removed))
			}
		case <-l.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
