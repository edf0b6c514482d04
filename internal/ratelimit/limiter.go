// Package ratelimit paces requests to the language-model provider.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every semantic worker.
type Limiter struct {
	mu           sync.RWMutex
	limiter      *rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int

	waits    atomic.Int64
	waitedNs atomic.Int64
}

// NewLimiter creates a limiter. A non-positive rate means unlimited.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := toLimit(requestsPerSecond)
	return &Limiter{
		limiter:      rate.NewLimiter(limit, burst),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

func toLimit(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// Wait blocks until a request is allowed or context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	l.waits.Add(1)
	l.waitedNs.Add(int64(time.Since(start)))
	return err
}

// Allow checks if a request is allowed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetRate updates the rate limit.
func (l *Limiter) SetRate(requestsPerSecond float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	limit := toLimit(requestsPerSecond)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter.SetLimit(limit)
	l.limiter.SetBurst(burst)
	l.defaultRate = limit
	l.defaultBurst = burst
}

// Stats returns rate limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return LimiterStats{
		Rate:      float64(l.defaultRate),
		Burst:     l.defaultBurst,
		Waits:     l.waits.Load(),
		TotalWait: time.Duration(l.waitedNs.Load()),
	}
}

// LimiterStats contains rate limiter statistics.
type LimiterStats struct {
	Rate      float64       `json:"rate"`
	Burst     int           `json:"burst"`
	Waits     int64         `json:"waits"`
	TotalWait time.Duration `json:"total_wait"`
}

// AdaptiveRateLimiter lowers its rate when the provider throttles or fails
// and recovers gradually while requests succeed.
type AdaptiveRateLimiter struct {
	*Limiter
	mu           sync.Mutex
	minRate      float64
	maxRate      float64
	currentRate  float64
	errorCount   int
	successCount int
	windowSize   int
}

// NewAdaptiveRateLimiter creates a new adaptive rate limiter starting at
// maxRate.
func NewAdaptiveRateLimiter(minRate, maxRate float64, burst int) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		Limiter:     NewLimiter(maxRate, burst),
		minRate:     minRate,
		maxRate:     maxRate,
		currentRate: maxRate,
		windowSize:  20,
	}
}

// RecordSuccess records a successful request.
func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.checkAndAdjust()
}

// RecordError records a failed request.
func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.checkAndAdjust()
}

// RecordThrottle halves the rate immediately after a 429 from the provider.
func (a *AdaptiveRateLimiter) RecordThrottle() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.setCurrent(a.currentRate * 0.5)
	a.successCount = 0
	a.errorCount = 0
}

// checkAndAdjust adjusts the rate once a full window has been observed.
func (a *AdaptiveRateLimiter) checkAndAdjust() {
	total := a.successCount + a.errorCount
	if total < a.windowSize {
		return
	}

	errorRate := float64(a.errorCount) / float64(total)
	if errorRate > 0.1 {
		a.setCurrent(a.currentRate * 0.8)
	} else if errorRate < 0.01 {
		a.setCurrent(a.currentRate * 1.1)
	}

	a.successCount = 0
	a.errorCount = 0
}

func (a *AdaptiveRateLimiter) setCurrent(r float64) {
	if r < a.minRate {
		r = a.minRate
	}
	if r > a.maxRate {
		r = a.maxRate
	}
	a.currentRate = r
	a.SetRate(r, a.Stats().Burst)
}

// CurrentRate returns the current rate.
func (a *AdaptiveRateLimiter) CurrentRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}
