package core

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes how often and how patiently an operation is retried.
type RetryPolicy struct {
	// MaxAttempts counts the first try; values < 1 are treated as 1.
	MaxAttempts int
	Backoff     time.Duration
	// Jitter randomizes each wait within [Backoff*(1-Jitter), Backoff*(1+Jitter)].
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff:     time.Second,
	}
}

// RetryNotify is called after a failed attempt that will be retried after `wait`.
type RetryNotify func(err error, attempt int, wait time.Duration)

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Backoff
	b.MaxInterval = p.Backoff
	b.Multiplier = 1
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0

	var retries uint64
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// Run calls op until it succeeds, returns a permanent error (see backoff.Permanent),
// the attempts are exhausted or ctx is done. Waiting between attempts goes through timer;
// a nil timer uses a real time.Timer.
// The error of the last attempt is returned, unwrapped when it was permanent.
func (p RetryPolicy) Run(ctx context.Context, op func(attempt int) error, timer backoff.Timer, notify RetryNotify) error {
	attempt := 0
	operation := func() error {
		attempt++
		return op(attempt)
	}

	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) { notify(err, attempt, wait) }
	}
	return backoff.RetryNotifyWithTimer(operation, p.newBackOff(ctx), n, timer)
}
