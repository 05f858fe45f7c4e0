package resilience

import "time"

// Policy controls how many times a guarded operation is attempted and when
// its circuit breaker opens.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	BreakerEnabled      bool
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	BreakerProbeCalls   uint32
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     400 * time.Millisecond,
		BackoffFactor:  2.0,

		BreakerEnabled:      true,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.5,
		BreakerOpenFor:      30 * time.Second,
		BreakerProbeCalls:   2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.BackoffFactor < 1.0 {
		p.BackoffFactor = def.BackoffFactor
	}
	if p.BreakerMinRequests == 0 {
		p.BreakerMinRequests = def.BreakerMinRequests
	}
	if p.BreakerFailureRatio <= 0 || p.BreakerFailureRatio > 1 {
		p.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if p.BreakerOpenFor <= 0 {
		p.BreakerOpenFor = def.BreakerOpenFor
	}
	if p.BreakerProbeCalls == 0 {
		p.BreakerProbeCalls = def.BreakerProbeCalls
	}
	return p
}
