package invoker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// State is a node of the retry state machine.
type State int

const (
	Idle State = iota
	Running
	FailedAttempt
	Succeeded
	ExhaustedRetries
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case FailedAttempt:
		return "failed-attempt"
	case Succeeded:
		return "succeeded"
	case ExhaustedRetries:
		return "exhausted-retries"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Step is one logical external operation, e.g. a download or a conversion.
type Step struct {
	// Name is used in user-facing messages, e.g. "download".
	Name    string
	Command Command
}

// Outcome summarizes all attempts of a step.
type Outcome struct {
	State    State
	Attempts int
	Last     Result
	Err      error
}

// Succeeded reports whether the step finished successfully.
func (o Outcome) Succeeded() bool { return o.State == Succeeded }

// Invoker runs steps under a retry policy.
type Invoker struct {
	runner Runner
	policy Policy
	timer  backoff.Timer
	out    io.Writer
	notify func(State)
}

// Option mutates Invoker configuration.
type Option func(*Invoker)

// WithTimer replaces the timer that paces the backoff; used by tests.
func WithTimer(t backoff.Timer) Option {
	return func(iv *Invoker) {
		iv.timer = t
	}
}

// WithOutput sets where per-attempt messages are written.
func WithOutput(w io.Writer) Option {
	return func(iv *Invoker) {
		iv.out = w
	}
}

// WithTransitionHook observes every state entered.
func WithTransitionHook(fn func(State)) Option {
	return func(iv *Invoker) {
		iv.notify = fn
	}
}

// New validates the policy and builds an Invoker.
func New(r Runner, p Policy, opts ...Option) (*Invoker, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	iv := &Invoker{
		runner: r,
		policy: p,
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(iv)
	}
	return iv, nil
}

// attemptError is returned to the backoff loop for a failed attempt.
type attemptError struct {
	res Result
}

func (e attemptError) Error() string { return e.res.ExitInfo }

// Invoke runs step until it succeeds or the policy's attempts are used up.
// Failures are reported to the output and in the Outcome, never returned as errors.
func (iv *Invoker) Invoke(ctx context.Context, step Step) Outcome {
	iv.enter(Idle)
	out := Outcome{State: Idle}
	maxRetries := iv.policy.MaxRetries

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(iv.policy.Backoff()), uint64(maxRetries-1)), //nolint:gosec // validated gt=0
		ctx,
	)
	operation := func() error {
		iv.enter(Running)
		out.Attempts++
		out.Last = iv.runner.Run(ctx, step.Command, iv.policy.Timeout())
		if out.Last.Succeeded {
			return nil
		}
		iv.enter(FailedAttempt)
		iv.reportFailure(step.Name, out.Attempts, out.Last)
		return attemptError{res: out.Last}
	}
	notify := func(_ error, next time.Duration) {
		logrus.Debugf("%s: retrying in %s", step.Name, next)
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, iv.timer)
	var failed attemptError
	switch {
	case err == nil:
		out.State = Succeeded
		iv.enter(Succeeded)
		logrus.Debugf("%s succeeded on attempt %d", step.Name, out.Attempts)
	case errors.As(err, &failed):
		out.State = ExhaustedRetries
		iv.enter(ExhaustedRetries)
		fmt.Fprintf(iv.out, "⛔ %s: maximum attempts (%d) reached, giving up.\n", step.Name, maxRetries)
	default:
		out.State = Canceled
		out.Err = err
		iv.enter(Canceled)
	}
	return out
}

func (iv *Invoker) reportFailure(name string, attempt int, res Result) {
	total := iv.policy.MaxRetries
	if res.TimedOut {
		fmt.Fprintf(iv.out, "⚠️ %s timed out (attempt %d/%d). Check your connection; retrying...\n", name, attempt, total)
	} else {
		fmt.Fprintf(iv.out, "⚠️ %s failed (attempt %d/%d): %s\n", name, attempt, total, res.ExitInfo)
	}
	if res.Stderr != "" {
		fmt.Fprintln(iv.out, res.Stderr)
	}
	logrus.Debugf("%s attempt %d failed: timed_out=%t exit=%q", name, attempt, res.TimedOut, res.ExitInfo)
}

func (iv *Invoker) enter(s State) {
	if iv.notify != nil {
		iv.notify(s)
	}
}
