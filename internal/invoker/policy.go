package invoker

import (
	"fmt"
	"time"

	"github.com/ensigniasec/hf-pick/internal/validate"
)

const (
	DefaultMaxRetries     = 3
	DefaultTimeoutSeconds = 600
	DefaultBackoffSeconds = 10
)

// Policy bounds the attempts made for a single step.
type Policy struct {
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries" validate:"gt=0"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gt=0"`
	BackoffSeconds int `mapstructure:"backoff_seconds" yaml:"backoff_seconds" validate:"gte=0"`
}

// DefaultPolicy returns three attempts of ten minutes, ten seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		TimeoutSeconds: DefaultTimeoutSeconds,
		BackoffSeconds: DefaultBackoffSeconds,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}
	return nil
}

// Timeout is the per-attempt deadline.
func (p Policy) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Backoff is the pause between attempts.
func (p Policy) Backoff() time.Duration {
	return time.Duration(p.BackoffSeconds) * time.Second
}
