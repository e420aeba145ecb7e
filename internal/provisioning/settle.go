package provisioning

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mobapp/domicilio/pkg/shipper"
)

// Settler spaces the first platform write after token issuance. It waits Delay,
// then runs the operation, retrying with exponential backoff while the platform
// answers with a retryable error, up to MaxTries attempts in total.
type Settler struct {
	Delay           time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultSettler waits five seconds and then tries once more on not-ready answers.
func DefaultSettler() Settler {
	return Settler{
		Delay:           5 * time.Second,
		MaxTries:        3,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// Run waits out the delay and calls op under the retry policy. notify, when set,
// is called before every retry.
func (s Settler) Run(ctx context.Context, op func(context.Context) error, notify func(error, time.Duration)) error {
	if err := sleep(ctx, s.Delay); err != nil {
		return err
	}

	tries := s.MaxTries
	if tries == 0 {
		tries = 1
	}

	b := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		b.InitialInterval = s.InitialInterval
	}
	if s.MaxInterval > 0 {
		b.MaxInterval = s.MaxInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op(ctx)
		if err != nil && !shipper.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, opts...)
	return err
}

// Bound returns the longest Run can take when every attempt of op is limited
// to attempt. Backoff waits are counted at their randomized maximum.
func (s Settler) Bound(attempt time.Duration) time.Duration {
	tries := s.MaxTries
	if tries == 0 {
		tries = 1
	}
	maxInterval := s.MaxInterval
	if maxInterval <= 0 {
		maxInterval = backoff.DefaultMaxInterval
	}
	wait := time.Duration(float64(maxInterval) * (1 + backoff.DefaultRandomizationFactor))
	return s.Delay + time.Duration(tries)*attempt + time.Duration(tries-1)*wait
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
