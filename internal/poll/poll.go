// Package poll runs bounded, cancellable condition loops.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Until when the policy's bound elapses before the
// condition holds.
var ErrTimeout = errors.New("poll: timed out")

// Policy is an interval and an overall bound. A zero Timeout means no bound
// beyond the caller's context.
type Policy struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// WithDefaults fills whichever fields are unset.
func (p Policy) WithDefaults(interval, timeout time.Duration) Policy {
	if p.Interval <= 0 {
		p.Interval = interval
	}
	if p.Timeout <= 0 {
		p.Timeout = timeout
	}
	return p
}

// Condition reports whether polling can stop. A non-nil error aborts the loop.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then once per interval until it
// returns true, returns an error, the bound elapses (ErrTimeout) or ctx is
// cancelled (ctx.Err()).
func Until(ctx context.Context, p Policy, cond Condition) error {
	if p.Interval <= 0 {
		p.Interval = time.Second
	}

	var deadline <-chan time.Time
	if p.Timeout > 0 {
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
