package replication

import (
	"time"

	"github.com/jonathan/hrms/internal/config"
)

// RetryPolicy controls redelivery of failed requests.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
	}
}

// RetryPolicyFromConfig reads the retry settings out of cfg.
func RetryPolicyFromConfig(cfg *config.Config) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelayMillis > 0 {
		p.BaseDelay = time.Duration(cfg.BaseDelayMillis) * time.Millisecond
	}
	if cfg.MaxDelayMillis > 0 {
		p.MaxDelay = time.Duration(cfg.MaxDelayMillis) * time.Millisecond
	}
	return p
}

// Delay returns the wait before the next try after the given number of
// failed attempts.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempts; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Exhausted reports whether a request with the given attempts is done.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
