package tui

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/apiliability/site/internal/paginate"
)

// MinCols is the narrowest terminal the surface will lay out.
const MinCols = 20

// Surface measures blocks in terminal rows. A page holds rows lines, so
// one row is worth PageHeight/rows layout pixels. Every block is followed
// by a blank separator line.
type Surface struct {
	mu   sync.Mutex
	rows int
}

func NewSurface(rows int) *Surface {
	return &Surface{rows: max(rows, 1)}
}

// SetRows changes the page height in rows for later passes.
func (s *Surface) SetRows(rows int) {
	s.mu.Lock()
	s.rows = max(rows, 1)
	s.mu.Unlock()
}

func (s *Surface) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Acquire treats width as a column count.
func (s *Surface) Acquire(ctx context.Context, width int) (paginate.Probe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width < MinCols {
		return nil, fmt.Errorf("%w: %d columns is below %d", paginate.ErrMeasurementUnavailable, width, MinCols)
	}
	return &rowProbe{cols: width, rowHeight: rowHeight(s.Rows())}, nil
}

// rowHeight rounds down so that rows lines never exceed the page budget.
func rowHeight(rows int) float64 {
	return math.Floor(paginate.PageHeight/float64(rows)*1024) / 1024
}

type rowProbe struct {
	cols      int
	rowHeight float64
}

func (p *rowProbe) Height(ctx context.Context, fragment string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lines, err := RenderBlock(fragment, p.cols, Styles{})
	if err != nil {
		return 0, err
	}
	return float64(len(lines)+1) * p.rowHeight, nil
}

func (p *rowProbe) Release() error { return nil }
