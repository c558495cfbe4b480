package ratelimit

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// ContinuousLimiter is an alternate admission-control strategy built on
// golang.org/x/time/rate's continuous-accumulation token bucket, in the
// shape of the per-peer limiter the producer's federation hub builds with
// rate.NewLimiter(rate.Every(...), burst). It is not a substitute for
// TokenBucketRateLimiter's spec-exact floored semantics; it exists as a
// second option when long-run throughput matters more than exact
// per-call token accounting.
type ContinuousLimiter struct {
	limiter *rate.Limiter
}

// NewContinuousLimiter builds a limiter admitting messagesPerSecond on
// average with the given burst allowance.
func NewContinuousLimiter(messagesPerSecond float64, burst int) *ContinuousLimiter {
	return &ContinuousLimiter{
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), burst),
	}
}

// Allow reports whether a message may be admitted right now, consuming a
// token if so.
func (c *ContinuousLimiter) Allow() bool {
	return c.limiter.Allow()
}

// CheckAndRecord mirrors the other limiters' error-returning contract.
func (c *ContinuousLimiter) CheckAndRecord() error {
	if !c.limiter.Allow() {
		return protocol.NewError(protocol.KindRateLimitExceeded, "continuous rate limit exceeded")
	}
	return nil
}

// ReserveDelay reserves a token and reports how long the caller must wait
// before using it, without blocking. The reserved token is consumed, so
// later Allow/CheckAndRecord calls see it as taken.
func (c *ContinuousLimiter) ReserveDelay() time.Duration {
	r := c.limiter.Reserve()
	if !r.OK() {
		return 0
	}
	return r.Delay()
}
