package observability

import (
	"context"
	"errors"
	"time"
)

const defaultShutdownTimeout = 5 * time.Second

// ShutdownFunc flushes and stops a telemetry pipeline component.
type ShutdownFunc func(ctx context.Context) error

// NewShutdownFunc combines component shutdowns into one call. All components
// are shut down even when earlier ones fail; errors are joined. A context
// without a deadline gets a bounded default so shutdown cannot hang exits.
func NewShutdownFunc(funcs ...ShutdownFunc) ShutdownFunc {
	return func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
		}

		var errs []error
		for _, fn := range funcs {
			if fn == nil {
				continue
			}
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
