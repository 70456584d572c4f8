package connection

import "time"

// Default backoff policy values.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxAttempts = 5
)

// Policy computes reconnect delays and the retry ceiling.
type Policy struct {
	BaseDelay   time.Duration // Delay for attempt 0
	MaxDelay    time.Duration // Upper bound on any delay (0 = unbounded)
	MaxAttempts int           // Retries allowed before giving up
}

// DefaultPolicy returns 1s base, 5 attempts, no delay cap.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   DefaultBaseDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Allows reports whether a retry may be scheduled at attempt index n.
func (p Policy) Allows(n int) bool {
	return n >= 0 && n < p.MaxAttempts
}

// Delay returns BaseDelay * 2^n, capped at MaxDelay when set.
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}

	d := p.BaseDelay
	for i := 0; i < n; i++ {
		// Stop doubling before overflow or once past the cap
		if d > (1<<62)/2 || (p.MaxDelay > 0 && d >= p.MaxDelay) {
			break
		}
		d *= 2
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
