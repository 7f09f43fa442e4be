package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrNotConsistent = errors.New("condition not satisfied within the retry budget")

var errNotYet = errors.New("not yet")

// WaitForConsistency polls check until it reports true, making at most attempts
// calls spaced by delay. It is meant for stores that converge shortly after a
// write, such as profile rows created asynchronously after signup.
//
// Errors from check count as "not yet". When the budget runs out the last
// error (or ErrNotConsistent) is returned; the caller decides whether that is fatal.
func WaitForConsistency(ctx context.Context, attempts int, delay time.Duration, check func(ctx context.Context) (bool, error)) error {

	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		ok, err := check(ctx)
		if err != nil {
			lastErr = err
			return err
		}

		if !ok {
			return errNotYet
		}

		return nil
	}, policy)

	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrNotConsistent, lastErr)
	}

	return ErrNotConsistent
}
