// Package fallback tries a list of options in order until one works.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoOptions is returned when First is called with an empty list.
var ErrNoOptions = errors.New("no options to try")

// First calls try for each option in order and returns the first option
// that succeeds. When every option fails the errors are joined.
func First[T any](ctx context.Context, options []T, try func(context.Context, T) error) (T, error) {
	var zero T
	if len(options) == 0 {
		return zero, ErrNoOptions
	}

	var errs []error
	for i, opt := range options {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		err := try(ctx, opt)
		if err == nil {
			return opt, nil
		}
		errs = append(errs, fmt.Errorf("option %d: %w", i+1, err))
	}
	return zero, errors.Join(errs...)
}
