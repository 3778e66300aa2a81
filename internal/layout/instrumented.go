package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apiliability/site/internal/paginate"
)

// Backend names accepted by ForBackend.
const (
	BackendEstimate = "estimate"
	BackendBrowser  = "browser"
)

// ErrUnknownBackend is returned by ForBackend for an unrecognised name.
var ErrUnknownBackend = errors.New("unknown layout backend")

// Instrumented wraps a surface and records the latency of every height
// measurement.
type Instrumented struct {
	inner paginate.Surface
	name  string
	Stats *Stats
}

// Instrument wraps inner, recording into stats.
func Instrument(name string, inner paginate.Surface, stats *Stats) *Instrumented {
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &Instrumented{inner: inner, name: name, Stats: stats}
}

// Name returns the backend name.
func (s *Instrumented) Name() string { return s.name }

func (s *Instrumented) Acquire(ctx context.Context, width int) (paginate.Probe, error) {
	p, err := s.inner.Acquire(ctx, width)
	if err != nil {
		s.Stats.RecordError()
		return nil, err
	}
	return &instrumentedProbe{inner: p, stats: s.Stats}, nil
}

// Close closes the wrapped surface when it holds resources.
func (s *Instrumented) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type instrumentedProbe struct {
	inner paginate.Probe
	stats *Stats
}

func (p *instrumentedProbe) Height(ctx context.Context, fragment string) (float64, error) {
	start := time.Now()
	h, err := p.inner.Height(ctx, fragment)
	if err != nil {
		p.stats.RecordError()
		return 0, err
	}
	p.stats.Record(time.Since(start))
	return h, nil
}

func (p *instrumentedProbe) Release() error {
	return p.inner.Release()
}

// ForBackend builds the named surface wrapped with instrumentation.
func ForBackend(name string, opts BrowserOptions, stats *Stats) (*Instrumented, error) {
	switch name {
	case "", BackendEstimate:
		return Instrument(BackendEstimate, NewEstimator(), stats), nil
	case BackendBrowser:
		return Instrument(BackendBrowser, NewBrowser(opts), stats), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
