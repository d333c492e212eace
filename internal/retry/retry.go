package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action is the classifier's verdict on a failed attempt.
type Action int

const (
	// RetrySame retries the current candidate after a delay.
	RetrySame Action = iota
	// NextCandidate advances to the next candidate without consuming the
	// attempt budget.
	NextCandidate
	// FailFast stops immediately; further attempts cannot succeed.
	FailFast
)

// ErrExhausted wraps the last error once candidates or attempts run out.
var ErrExhausted = errors.New("retry: all candidates exhausted")

// Policy is an explicit retry state machine: an ordered candidate list, an
// attempt budget shared across same-candidate retries, a per-error delay
// schedule, and a classifier mapping errors to actions. All dependencies are
// injectable so the policy is testable without a network or a clock.
type Policy struct {
	Candidates  []string
	MaxAttempts int
	BaseDelay   time.Duration

	// Classify decides what a failure means. Nil classifies everything as
	// RetrySame.
	Classify func(err error) Action

	// Delay computes the wait before a same-candidate retry. Nil uses
	// ExponentialDelay.
	Delay func(err error, attempt int, base time.Duration) time.Duration

	// Sleep waits out a delay. Nil uses a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialDelay doubles the base delay on every attempt.
func ExponentialDelay(_ error, attempt int, base time.Duration) time.Duration {
	return base << attempt
}

// FixedDelay always waits the base delay.
func FixedDelay(_ error, _ int, base time.Duration) time.Duration {
	return base
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op against the candidates in order and returns the candidate that
// succeeded. Candidate advancement is free; same-candidate retries consume
// the attempt budget. A FailFast classification or an exhausted budget
// returns the last error.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context, candidate string) error) (string, error) {
	if len(p.Candidates) == 0 {
		return "", fmt.Errorf("retry: no candidates configured")
	}

	classify := p.Classify
	if classify == nil {
		classify = func(error) Action { return RetrySame }
	}
	delay := p.Delay
	if delay == nil {
		delay = ExponentialDelay
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	candidate := 0
	for attempt := 0; attempt < p.MaxAttempts; {
		err := op(ctx, p.Candidates[candidate])
		if err == nil {
			return p.Candidates[candidate], nil
		}
		lastErr = err

		switch classify(err) {
		case FailFast:
			return "", err
		case NextCandidate:
			candidate++
			if candidate >= len(p.Candidates) {
				return "", fmt.Errorf("%w: %w", ErrExhausted, lastErr)
			}
		default:
			if err := sleep(ctx, delay(lastErr, attempt, p.BaseDelay)); err != nil {
				return "", err
			}
			attempt++
		}
	}
	return "", fmt.Errorf("retry: failed after %d attempts: %w", p.MaxAttempts, lastErr)
}
