package delivery

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff(DefaultBackoff)
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, 2 * time.Minute},
		{3, 10 * time.Minute},
		{4, 30 * time.Minute},
		{5, time.Hour},
		{9, time.Hour},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempts); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestBackoffEmpty(t *testing.T) {
	if got := Backoff(nil).Delay(3); got != 0 {
		t.Fatalf("expected zero delay, got %v", got)
	}
}
