package paginate

import (
	"context"
	"errors"
)

// ErrMeasurementUnavailable is returned when the measurement surface cannot
// report block heights. Callers should keep their previous pages and retry
// the pass later.
var ErrMeasurementUnavailable = errors.New("measurement surface unavailable")

// Surface is a layout surface able to report the rendered height of markup
// at a given container width.
type Surface interface {
	// Acquire prepares off-screen measurement scaffolding for width.
	// The returned Probe must be released by the caller.
	Acquire(ctx context.Context, width int) (Probe, error)
}

// Probe measures fragments inside scaffolding held by a Surface.
type Probe interface {
	// Height returns the rendered height of fragment in layout pixels.
	Height(ctx context.Context, fragment string) (float64, error)
	// Release removes the scaffolding. It is safe to call more than once.
	Release() error
}
