package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// TokenBucketRateLimiter admits messages against a capacity-C, refill-
// rate-R token bucket. Refill is floored: fractional tokens accumulated
// between calls are not carried forward, matching the conservative
// (no-fractional-carry) strategy described in the design notes.
type TokenBucketRateLimiter struct {
	mu sync.Mutex

	capacity   uint64
	tokens     uint64
	refillRate float64
	lastRefill time.Time

	totalMessages uint64
	totalRejected uint64

	now func() time.Time
}

// NewTokenBucket builds a full bucket of the given capacity and refill
// rate (tokens per second).
func NewTokenBucket(capacity uint64, refillRate float64) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// CheckAndConsume refills, then consumes one token if available.
func (t *TokenBucketRateLimiter) CheckAndConsume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refill()

	if t.tokens == 0 {
		t.totalRejected++
		return protocol.NewError(protocol.KindRateLimitExceeded, "token bucket exhausted")
	}
	t.tokens--
	t.totalMessages++
	return nil
}

// refill adds floor(elapsed_seconds * refillRate) tokens, clamped to
// capacity. lastRefill only advances when at least one token was added,
// so fractional elapsed time is not lost across zero-token refills.
func (t *TokenBucketRateLimiter) refill() {
	now := t.now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	tokensToAdd := uint64(math.Floor(elapsed * t.refillRate))
	if tokensToAdd > 0 {
		t.tokens = min(t.tokens+tokensToAdd, t.capacity)
		t.lastRefill = now
	}
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Reset returns the bucket to a full state. Lifetime totals are
// process-lifetime counters and are left untouched.
func (t *TokenBucketRateLimiter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = t.capacity
	t.lastRefill = t.now()
}

// AvailableTokens returns the current token count without consuming.
func (t *TokenBucketRateLimiter) AvailableTokens() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens
}

// GetStats returns (totalMessages, totalRejected).
func (t *TokenBucketRateLimiter) GetStats() (uint64, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalMessages, t.totalRejected
}
