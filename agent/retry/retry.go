// Package retry re-runs an operation while it fails with an Unavailable failure,
// waiting k*BaseDelay before retry k.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay is the wait before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	return time.Duration(retry) * p.BaseDelay
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// State is local to one Do call.
type State struct {
	Attempts int
	Waited   time.Duration
}

// Controller holds no per-call state and may be shared across goroutines.
type Controller struct {
	policy Policy
	sleep  SleepFunc
}

type Option func(*Controller)

// WithSleep replaces the timer-based wait, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

func New(p Policy, opts ...Option) *Controller {
	c := &Controller{policy: p, sleep: sleepWithCtx}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Policy() Policy {
	return c.policy
}

// Do runs fn until it succeeds, fails with something other than Unavailable, or the
// attempt budget is spent. No wait follows the final attempt. A spent budget yields a
// RetriesExhausted failure wrapping the last error; a cancelled wait yields Unknown
// wrapping ctx.Err().
func Do[T any](ctx context.Context, c *Controller, fn func(ctx context.Context) (T, error)) (T, State, error) {
	var (
		zero  T
		state State
	)
	logger := zerolog.Ctx(ctx)
	maxAttempts := c.policy.attempts()

	for {
		state.Attempts++
		out, err := fn(ctx)
		if err == nil {
			return out, state, nil
		}

		f := contractx.AsFailure(err)
		if !f.Retryable() {
			return zero, state, err
		}
		if state.Attempts >= maxAttempts {
			logger.Error().Err(err).Int("attempts", state.Attempts).Msg("retries exhausted")
			return zero, state, &contractx.Failure{
				Kind:     contractx.KindRetriesExhausted,
				UseCase:  f.UseCase,
				Attempts: state.Attempts,
				Status:   f.Status,
				Err:      err,
			}
		}

		delay := c.policy.Delay(state.Attempts)
		logger.Warn().Err(err).
			Int("attempt", state.Attempts).
			Dur("backoff", delay).
			Msg("upstream unavailable, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return zero, state, &contractx.Failure{
				Kind:     contractx.KindUnknown,
				UseCase:  f.UseCase,
				Attempts: state.Attempts,
				Err:      err,
			}
		}
		state.Waited += delay
	}
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
