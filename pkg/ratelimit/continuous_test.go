package ratelimit

import "testing"

func TestContinuousLimiterAllowsWithinBurst(t *testing.T) {
	c := NewContinuousLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !c.Allow() {
			t.Fatalf("call %d should be allowed within burst", i)
		}
	}
	if c.Allow() {
		t.Error("call beyond burst should be denied immediately")
	}
}

func TestContinuousLimiterCheckAndRecord(t *testing.T) {
	c := NewContinuousLimiter(1, 1)
	if err := c.CheckAndRecord(); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if err := c.CheckAndRecord(); err == nil {
		t.Fatal("second call should fail, burst exhausted")
	}
}

func TestContinuousLimiterReserveDelay(t *testing.T) {
	c := NewContinuousLimiter(1, 1)
	c.Allow()

	if d := c.ReserveDelay(); d <= 0 {
		t.Errorf("ReserveDelay() = %v, want positive delay after burst exhausted", d)
	}
}
