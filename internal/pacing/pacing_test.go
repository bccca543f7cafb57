package pacing

import (
	"testing"
	"time"
)

func TestForBehindBoundaries(t *testing.T) {
	tests := []struct {
		behind uint64
		want   Tier
	}{
		{0, TierStandard},
		{1, TierInitialAccelerated},
		{4, TierInitialAccelerated},
		{5, TierAccelerated},
		{9, TierAccelerated},
		{10, TierSuperAccelerated},
		{11, TierSuperAccelerated},
		{100, TierSuperAccelerated},
	}

	for _, tt := range tests {
		if got := ForBehind(tt.behind); got != tt.want {
			t.Errorf("ForBehind(%d) = %q, want %q", tt.behind, got, tt.want)
		}
	}
}

func TestDrawStaysWithinTierBounds(t *testing.T) {
	tests := []struct {
		tier   Tier
		lo, hi time.Duration
	}{
		{TierStandard, 53 * time.Second, 67 * time.Second},
		{TierInitialAccelerated, 14 * time.Second, 37 * time.Second},
		{TierAccelerated, 7 * time.Second, 16 * time.Second},
		{TierSuperAccelerated, 3 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				got := Draw(tt.tier)
				if got < tt.lo || got > tt.hi {
					t.Fatalf("Draw(%s) = %v, want within [%v, %v]", tt.tier, got, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestWorkerPauseBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		got := WorkerPause()
		if got < 3*time.Second || got > 10*time.Second {
			t.Fatalf("WorkerPause() = %v, want within [3s, 10s]", got)
		}
	}
}

func TestStandardWait(t *testing.T) {
	max := 5 * time.Minute

	tests := []struct {
		name   string
		draw   time.Duration
		factor float64
		want   time.Duration
	}{
		{"no backoff", 53 * time.Second, 1.0, 53 * time.Second},
		{"stretched", 60 * time.Second, 1.5, 90 * time.Second},
		{"rounded up", 55 * time.Second, 2.25, 124 * time.Second},
		{"under cap", 53 * time.Second, 5.0, 265 * time.Second},
		{"capped", 67 * time.Second, 5.0, max},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StandardWait(tt.draw, tt.factor, max); got != tt.want {
				t.Errorf("StandardWait(%v, %v) = %v, want %v", tt.draw, tt.factor, got, tt.want)
			}
		})
	}
}

func TestBackoffRaiseSequenceAndCap(t *testing.T) {
	b := NewBackoff(5 * time.Minute)

	want := []float64{1.5, 2.25, 3.375, 5.0, 5.0}
	for i, w := range want {
		if got := b.Raise(); got != w {
			t.Fatalf("Raise() #%d = %v, want %v", i+1, got, w)
		}
	}
	if got := b.Factor(); got != 5.0 {
		t.Errorf("Factor() = %v, want 5.0", got)
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(5 * time.Minute)

	if b.Reset() {
		t.Error("Reset() on fresh backoff = true, want false")
	}

	b.Raise()
	if !b.Reset() {
		t.Error("Reset() after Raise() = false, want true")
	}
	if got := b.Factor(); got != 1.0 {
		t.Errorf("Factor() after reset = %v, want 1.0", got)
	}
}
