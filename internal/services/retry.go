package services

import (
	"context"
	"time"

	"github.com/dsyorkd/emr-controller/internal/errors"
)

// retryOnConflict runs a read-modify-write cycle and retries it once
// when the persist step detects a concurrent write. A second conflict
// surfaces as ErrConflict to the caller.
func retryOnConflict(ctx context.Context, op func() error) error {
	const attempts = 2

	for attempt := 0; attempt < attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errors.ErrConflict) {
			return err
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	return ErrConflict
}
