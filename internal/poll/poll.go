// Package poll implements bounded wait-for-condition loops.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrTimeout matches every TimeoutError via errors.Is.
var ErrTimeout = errors.New("condition not met before deadline")

var errPending = errors.New("condition pending")

// TimeoutError reports a condition that never became true.
type TimeoutError struct {
	What    string
	Timeout time.Duration
	// Last is the most recent error the condition reported, if any.
	Last error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: not ready after %s", e.What, e.Timeout)
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

// Condition reports whether the awaited state has been reached. A non-nil
// error is treated as transient and retried; wrap it with Permanent to stop.
type Condition func(ctx context.Context) (bool, error)

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks a condition error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Options bound a polling loop.
type Options struct {
	What     string
	Interval time.Duration
	Timeout  time.Duration
}

// Until evaluates cond every Interval until it returns true, a permanent
// error occurs, the parent context ends, or Timeout elapses.
func Until(ctx context.Context, opts Options, cond Condition) error {
	if opts.Interval <= 0 {
		return fmt.Errorf("%s: poll interval must be positive", opts.What)
	}
	if opts.Timeout <= 0 {
		return fmt.Errorf("%s: poll timeout must be positive", opts.What)
	}

	loopCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var last error
	backoff := retry.WithMaxDuration(opts.Timeout, retry.NewConstant(opts.Interval))
	err := retry.Do(loopCtx, backoff, func(ctx context.Context) error {
		ok, err := cond(ctx)
		if err != nil {
			var perm permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			last = err
			return retry.RetryableError(errPending)
		}
		if !ok {
			return retry.RetryableError(errPending)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errPending), errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{What: opts.What, Timeout: opts.Timeout, Last: last}
	default:
		return err
	}
}
