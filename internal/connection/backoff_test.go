package connection

import (
	"testing"
	"time"
)

func TestPolicy_DelayDoubles(t *testing.T) {
	p := DefaultPolicy()

	var prev time.Duration
	for n := 0; n < DefaultMaxAttempts; n++ {
		got := p.Delay(n)
		want := time.Duration(1000*(1<<n)) * time.Millisecond
		if got != want {
			t.Errorf("Delay(%d) = %v, want %v", n, got, want)
		}
		if got <= prev {
			t.Errorf("Delay(%d) = %v, not greater than Delay(%d) = %v", n, got, n-1, prev)
		}
		prev = got
	}
}

func TestPolicy_Allows(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		n    int
		want bool
	}{
		{-1, false},
		{0, true},
		{4, true},
		{5, false},
		{6, false},
	}

	for _, tt := range tests {
		if got := p.Allows(tt.n); got != tt.want {
			t.Errorf("Allows(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestPolicy_MaxDelay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, MaxAttempts: 10}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{9, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestPolicy_NoOverflow(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxAttempts: 100}

	if got := p.Delay(80); got <= 0 {
		t.Errorf("Delay(80) = %v, want positive", got)
	}
	if got := p.Delay(-3); got != time.Second {
		t.Errorf("Delay(-3) = %v, want 1s", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StatePendingRetry, "pending_retry"},
		{StateTerminal, "terminal"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
