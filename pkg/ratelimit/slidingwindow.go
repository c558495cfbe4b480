// Package ratelimit provides admission control for outgoing messages:
// a sliding-window limiter, a floored token bucket, and a continuous
// token-bucket built on golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// burstWindow is the fixed, non-configurable window used for the burst
// check in RateLimiter.CheckAndRecord.
const burstWindow = 100 * time.Millisecond

// Config configures a sliding-window RateLimiter.
type Config struct {
	MaxMessagesPerSecond uint64
	MaxBytesPerSecond    uint64
	BurstSize            uint64
	WindowDuration       time.Duration
}

// DefaultConfig matches the defaults in the original rate limiter design.
func DefaultConfig() Config {
	return Config{
		MaxMessagesPerSecond: 1000,
		MaxBytesPerSecond:    10 * 1024 * 1024,
		BurstSize:            100,
		WindowDuration:       time.Second,
	}
}

func (c Config) WithMaxMessages(n uint64) Config {
	c.MaxMessagesPerSecond = n
	return c
}

func (c Config) WithMaxBytes(n uint64) Config {
	c.MaxBytesPerSecond = n
	return c
}

func (c Config) WithBurstSize(n uint64) Config {
	c.BurstSize = n
	return c
}

func (c Config) WithWindowDuration(d time.Duration) Config {
	c.WindowDuration = d
	return c
}

type messageRecord struct {
	timestamp time.Time
	size      uint64
}

// Stats is the observable process-lifetime state of a RateLimiter.
type Stats struct {
	TotalMessages   uint64
	TotalBytes      uint64
	TotalRejected   uint64
	MessagesInWindow uint64
	BytesInWindow    uint64
}

// RateLimiter admits messages subject to a per-second message count, a
// per-second byte count, and a short burst window, evaluated in that
// order.
type RateLimiter struct {
	mu sync.Mutex

	config Config

	messageHistory []messageRecord
	byteHistory    []messageRecord

	totalMessages uint64
	totalBytes    uint64
	totalRejected uint64

	now func() time.Time
	log *logrus.Entry
}

// New builds a RateLimiter from the given config, using time.Now as the
// clock.
func New(config Config) *RateLimiter {
	return &RateLimiter{
		config: config,
		now:    time.Now,
		log:    logrus.WithFields(logrus.Fields{"component": "rate_limiter"}),
	}
}

// CheckAndRecord evicts stale records, then runs the ordered admission
// checks; the first failing check determines the rejection. A successful
// call appends the record to both histories and increments counters.
func (r *RateLimiter) CheckAndRecord(size uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.cleanupOldRecords(now)

	if r.countMessagesInWindow(now) >= r.config.MaxMessagesPerSecond {
		r.totalRejected++
		r.log.WithField("size", size).Warn("rejected: message rate exceeded")
		return protocol.NewError(protocol.KindRateLimitExceeded, "message rate limit exceeded")
	}
	if r.countBytesInWindow(now)+size > r.config.MaxBytesPerSecond {
		r.totalRejected++
		r.log.WithField("size", size).Warn("rejected: byte rate exceeded")
		return protocol.NewError(protocol.KindRateLimitExceeded, "byte rate limit exceeded")
	}
	if r.countRecentBurst(now) >= r.config.BurstSize {
		r.totalRejected++
		r.log.WithField("size", size).Warn("rejected: burst size exceeded")
		return protocol.NewError(protocol.KindRateLimitExceeded, "burst size exceeded")
	}

	rec := messageRecord{timestamp: now, size: size}
	r.messageHistory = append(r.messageHistory, rec)
	r.byteHistory = append(r.byteHistory, rec)
	r.totalMessages++
	r.totalBytes += size

	return nil
}

// Check is a boolean-returning wrapper around CheckAndRecord.
func (r *RateLimiter) Check(size uint64) bool {
	return r.CheckAndRecord(size) == nil
}

func (r *RateLimiter) cleanupOldRecords(now time.Time) {
	cutoff := now.Add(-r.config.WindowDuration)
	r.messageHistory = evictBefore(r.messageHistory, cutoff)
	r.byteHistory = evictBefore(r.byteHistory, cutoff)
}

func evictBefore(records []messageRecord, cutoff time.Time) []messageRecord {
	i := 0
	for i < len(records) && records[i].timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return records
	}
	return append([]messageRecord(nil), records[i:]...)
}

func (r *RateLimiter) countMessagesInWindow(now time.Time) uint64 {
	cutoff := now.Add(-r.config.WindowDuration)
	var n uint64
	for _, rec := range r.messageHistory {
		if !rec.timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

func (r *RateLimiter) countBytesInWindow(now time.Time) uint64 {
	cutoff := now.Add(-r.config.WindowDuration)
	var n uint64
	for _, rec := range r.byteHistory {
		if !rec.timestamp.Before(cutoff) {
			n += rec.size
		}
	}
	return n
}

func (r *RateLimiter) countRecentBurst(now time.Time) uint64 {
	cutoff := now.Add(-burstWindow)
	var n uint64
	for _, rec := range r.messageHistory {
		if !rec.timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// Reset clears the sliding-window histories. The lifetime totals are not
// touched; they are process-lifetime counters, not window state.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageHistory = nil
	r.byteHistory = nil
}

// GetStats returns a snapshot of the limiter's observable state.
func (r *RateLimiter) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	return Stats{
		TotalMessages:    r.totalMessages,
		TotalBytes:       r.totalBytes,
		TotalRejected:    r.totalRejected,
		MessagesInWindow: r.countMessagesInWindow(now),
		BytesInWindow:    r.countBytesInWindow(now),
	}
}

// GetConfig returns the limiter's current configuration.
func (r *RateLimiter) GetConfig() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// SetConfig replaces the limiter's configuration without touching
// accumulated history or counters.
func (r *RateLimiter) SetConfig(config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
}
