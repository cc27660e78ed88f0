package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting for remote dataset inputs
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for clearance for input. Local inputs are never limited.
func (l *Limiter) Wait(ctx context.Context, input string) error {
	host, ok := remoteHost(input)
	if !ok {
		return nil
	}
	return l.getLimiter(host).Wait(ctx)
}

// Allow reports whether input may proceed now without waiting
func (l *Limiter) Allow(input string) bool {
	host, ok := remoteHost(input)
	if !ok {
		return true
	}
	return l.getLimiter(host).Allow()
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}

// SetHostRate sets a custom rate limit for one host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// remoteHost returns the host of an http(s) input
func remoteHost(input string) (string, bool) {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return "", false
	}
	parsed, err := url.Parse(input)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return parsed.Host, true
}

// Throttle spaces out repeated work such as rescans of a watched file
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows burst events at once, then one per minInterval
func NewThrottle(minInterval time.Duration, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next event may run or ctx ends
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Allow reports whether an event may run now, consuming a token if so
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
