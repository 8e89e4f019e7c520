// Package ratelimit bounds how often expensive scan requests are admitted.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket refilled at rate tokens per second, holding at
// most burst tokens
type Limiter struct {
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
	mu     sync.Mutex
}

// New creates a limiter admitting rps requests per second with the given burst.
// A non-positive rps returns nil, which admits everything.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		rate:   rps,
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}
	l.last = l.now()
	return l
}

// Allow takes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// RetryAfter estimates how long until the next token is available
func (l *Limiter) RetryAfter() time.Duration {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	missing := 1 - l.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / l.rate * float64(time.Second))
}
