package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		policy    Policy
		cond      func(calls int) (bool, error)
		wantErr   error
		wantCalls int
	}{
		{
			name:      "immediately true",
			policy:    Policy{Interval: time.Millisecond, Timeout: time.Second},
			cond:      func(int) (bool, error) { return true, nil },
			wantCalls: 1,
		},
		{
			name:      "true on third call",
			policy:    Policy{Interval: time.Millisecond, Timeout: time.Second},
			cond:      func(calls int) (bool, error) { return calls == 3, nil },
			wantCalls: 3,
		},
		{
			name:      "condition error aborts",
			policy:    Policy{Interval: time.Millisecond, Timeout: time.Second},
			cond:      func(calls int) (bool, error) { return false, boom },
			wantErr:   boom,
			wantCalls: 1,
		},
		{
			name:    "bound elapses",
			policy:  Policy{Interval: 5 * time.Millisecond, Timeout: 20 * time.Millisecond},
			cond:    func(int) (bool, error) { return false, nil },
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Until(context.Background(), tt.policy, func(context.Context) (bool, error) {
				calls++
				return tt.cond(calls)
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.wantCalls, calls)
			}
		})
	}
}

func TestUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Until(ctx, Policy{Interval: time.Millisecond, Timeout: time.Minute}, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWithDefaults(t *testing.T) {
	p := Policy{Interval: 2 * time.Second}.WithDefaults(time.Second, time.Minute)
	assert.Equal(t, Policy{Interval: 2 * time.Second, Timeout: time.Minute}, p)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
