package ratelimit

import (
	"testing"
	"time"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

func fakeClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time { return current }
}

func TestRateLimiterBurstAndWindow(t *testing.T) {
	cfg := DefaultConfig().WithMaxMessages(10).WithBurstSize(100).WithWindowDuration(time.Second)
	r := New(cfg)
	start := time.Now()
	clock := start
	r.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		if err := r.CheckAndRecord(10); err != nil {
			t.Fatalf("message %d: unexpected rejection: %v", i, err)
		}
	}

	if err := r.CheckAndRecord(10); err == nil {
		t.Fatal("11th message should be rejected")
	}
	if !protocol.IsKind(r.CheckAndRecord(10), protocol.KindRateLimitExceeded) {
		t.Error("rejection should carry KindRateLimitExceeded")
	}

	clock = start.Add(1100 * time.Millisecond)
	if err := r.CheckAndRecord(10); err != nil {
		t.Errorf("after window elapses, should succeed: %v", err)
	}
}

func TestRateLimiterByteLimit(t *testing.T) {
	cfg := DefaultConfig().WithMaxMessages(1000).WithMaxBytes(100).WithBurstSize(1000)
	r := New(cfg)

	if err := r.CheckAndRecord(60); err != nil {
		t.Fatalf("first message should fit: %v", err)
	}
	if err := r.CheckAndRecord(60); err == nil {
		t.Fatal("second message should exceed byte budget")
	}
}

func TestRateLimiterBurstRejection(t *testing.T) {
	cfg := DefaultConfig().WithMaxMessages(1000).WithMaxBytes(1 << 30).WithBurstSize(3)
	r := New(cfg)

	for i := 0; i < 3; i++ {
		if err := r.CheckAndRecord(1); err != nil {
			t.Fatalf("message %d within burst should succeed: %v", i, err)
		}
	}
	if err := r.CheckAndRecord(1); err == nil {
		t.Fatal("message beyond burst size should be rejected")
	}
}

func TestRateLimiterStatsMonotonic(t *testing.T) {
	cfg := DefaultConfig().WithMaxMessages(5).WithBurstSize(1000)
	r := New(cfg)

	calls := 20
	for i := 0; i < calls; i++ {
		r.CheckAndRecord(1)
	}

	stats := r.GetStats()
	if stats.TotalMessages+stats.TotalRejected != uint64(calls) {
		t.Errorf("TotalMessages(%d)+TotalRejected(%d) = %d, want %d",
			stats.TotalMessages, stats.TotalRejected, stats.TotalMessages+stats.TotalRejected, calls)
	}
}

func TestRateLimiterReset(t *testing.T) {
	cfg := DefaultConfig().WithMaxMessages(1).WithBurstSize(1000)
	r := New(cfg)

	r.CheckAndRecord(1)
	r.CheckAndRecord(1)
	beforeReset := r.GetStats()
	r.Reset()

	stats := r.GetStats()
	if stats.TotalMessages != beforeReset.TotalMessages || stats.TotalRejected != beforeReset.TotalRejected {
		t.Errorf("after reset, lifetime totals changed: got %+v, want unchanged from %+v", stats, beforeReset)
	}
	if err := r.CheckAndRecord(1); err != nil {
		t.Errorf("after reset clears window history, fresh message should succeed: %v", err)
	}
}
