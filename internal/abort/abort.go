// Package abort distinguishes cancelled fetches from failed or empty ones.
package abort

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted is reported when the caller's context ends while a fetch is in flight.
var ErrAborted = errors.New("aborted")

// Check returns ErrAborted if ctx is already done.
func Check(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return nil
}

// Wrap converts err into ErrAborted when ctx has been cancelled, so a transport
// failure caused by the cancellation is not mistaken for a real error.
func Wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAborted) {
		return err
	}
	if ctx != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return err
}

// Is reports whether err is an abort.
func Is(err error) bool {
	return errors.Is(err, ErrAborted)
}
