package crowd

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Policy holds the alert evaluation tunables. A Policy value is
// immutable once published; hot reloads swap the whole value through
// a PolicyHolder.
type Policy struct {
	// SpikeRatio is the exclusive relative-growth boundary above which
	// a spike alert fires (0.3 means growth must exceed 30%).
	SpikeRatio float64 `yaml:"spike_ratio"`

	// StalenessWindow is how long after the last admin validation a
	// busy crowd is considered unverified.
	StalenessWindow time.Duration `yaml:"staleness_window"`

	// StatusFallbackAge is the snapshot age beyond which status reports
	// fall back to the predictive estimator.
	StatusFallbackAge time.Duration `yaml:"status_fallback_age"`

	// AppendRetries is how many times a failed durable append is
	// retried before surfacing a hard failure.
	AppendRetries int `yaml:"append_retries"`

	// AppendBackoff is the pause between append retries.
	AppendBackoff time.Duration `yaml:"append_backoff"`

	// AppendTimeout bounds each durable append attempt.
	AppendTimeout time.Duration `yaml:"append_timeout"`
}

// DefaultPolicy returns the policy used when no file overrides it.
func DefaultPolicy() Policy {
	return Policy{
		SpikeRatio:        0.3,
		StalenessWindow:   30 * time.Minute,
		StatusFallbackAge: 5 * time.Minute,
		AppendRetries:     2,
		AppendBackoff:     100 * time.Millisecond,
		AppendTimeout:     5 * time.Second,
	}
}

// Validate checks the policy for nonsensical values.
func (p Policy) Validate() error {
	if p.SpikeRatio <= 0 {
		return fmt.Errorf("spike_ratio must be positive")
	}
	if p.StalenessWindow <= 0 {
		return fmt.Errorf("staleness_window must be positive")
	}
	if p.AppendRetries < 0 {
		return fmt.Errorf("append_retries must be non-negative")
	}
	if p.AppendTimeout <= 0 {
		return fmt.Errorf("append_timeout must be positive")
	}
	return nil
}

// PolicyHolder publishes the current policy to concurrent readers.
// Load is lock-free; Store swaps the full value.
type PolicyHolder struct {
	v atomic.Value // Policy
}

// NewPolicyHolder creates a holder seeded with the given policy.
func NewPolicyHolder(p Policy) *PolicyHolder {
	h := &PolicyHolder{}
	h.v.Store(p)
	return h
}

// Load returns the current policy.
func (h *PolicyHolder) Load() Policy {
	return h.v.Load().(Policy)
}

// Store publishes a new policy after validation.
func (h *PolicyHolder) Store(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.v.Store(p)
	return nil
}
