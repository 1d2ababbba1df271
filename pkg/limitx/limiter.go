// Package limitx throttles repeated attempts per key (an address, a client id)
// with one token bucket per key.
package limitx

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting parameters.
type Config struct {
	// RequestsPerWindow is the number of attempts allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// StrictLimit suits authentication attempts: 5 per minute, all 5 as a burst.
var StrictLimit = Config{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

const cleanupEvery = 5 * time.Minute

// Limiter hands out a token bucket per key.
type Limiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// New builds a Limiter. Non-positive values fall back to StrictLimit.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = StrictLimit.RequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = StrictLimit.Window
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerWindow
	}
	return &Limiter{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}
}

// Allow consumes one attempt for key. When refused it also reports how long
// until the next attempt would pass. An empty key is always allowed.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if key == "" {
		return true, 0
	}

	lim := l.get(key)
	if lim.Allow() {
		return true, 0
	}

	r := lim.Reserve()
	delay := r.Delay()
	r.Cancel()
	return false, delay
}

// Reset forgets key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.limiters.Delete(key)
}

func (l *Limiter) get(key string) *rate.Limiter {
	if lim, ok := l.limiters.Load(key); ok {
		return lim.(*rate.Limiter)
	}

	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets so ephemeral keys do not accumulate. A
// bucket with all its tokens back has not been used recently.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < cleanupEvery {
		return
	}
	l.lastCleanup = time.Now()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
