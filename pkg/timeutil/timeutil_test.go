package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestComputeJitter(t *testing.T) {
	tests := []struct {
		name string
		max  time.Duration
		rng  *rand.Rand
	}{
		{
			name: "max=0 returns 0",
			max:  0,
			rng:  rand.New(rand.NewSource(1)),
		},
		{
			name: "negative max returns 0",
			max:  -100 * time.Millisecond,
			rng:  rand.New(rand.NewSource(1)),
		},
		{
			name: "nil rng returns 0",
			max:  100 * time.Millisecond,
			rng:  nil,
		},
		{
			name: "positive max returns value within range",
			max:  1000 * time.Millisecond,
			rng:  rand.New(rand.NewSource(42)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeJitter(tt.max, tt.rng)
			if tt.max <= 0 || tt.rng == nil {
				if got != 0 {
					t.Errorf("ComputeJitter() = %v, want 0", got)
				}
				return
			}
			if got < 0 || got >= tt.max {
				t.Errorf("ComputeJitter() = %v, want within [0, %v)", got, tt.max)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	tests := []struct {
		name         string
		backoffCount int
		backoffParam BackoffParam
		expected     time.Duration
	}{
		{
			name:         "first backoff",
			backoffCount: 1,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			expected:     1 * time.Second,
		},
		{
			name:         "third backoff quadruples",
			backoffCount: 3,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			expected:     4 * time.Second,
		},
		{
			name:         "capped at max",
			backoffCount: 10,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 10*time.Second),
			expected:     10 * time.Second,
		},
		{
			name:         "zero count behaves like first",
			backoffCount: 0,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			expected:     1 * time.Second,
		},
		{
			name:         "fractional multiplier",
			backoffCount: 2,
			backoffParam: NewBackoffParam(1*time.Second, 1.5, 30*time.Second),
			expected:     time.Duration(float64(1*time.Second) * 1.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialBackoffDelay(tt.backoffCount, 0, rand.New(rand.NewSource(1)), tt.backoffParam)
			if got != tt.expected {
				t.Errorf("ExponentialBackoffDelay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExponentialBackoffDelay_WithJitter(t *testing.T) {
	param := NewBackoffParam(1*time.Second, 2.0, 30*time.Second)
	rng := rand.New(rand.NewSource(42))
	jitter := 100 * time.Millisecond

	for i := 0; i < 100; i++ {
		got := ExponentialBackoffDelay(2, jitter, rng, param)
		if got < 2*time.Second || got >= 2*time.Second+jitter {
			t.Fatalf("ExponentialBackoffDelay() = %v, want within [2s, 2.1s)", got)
		}
	}
}
