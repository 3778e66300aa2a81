package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apiliability/site/internal/paginate"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserConnect is returned when headless Chrome cannot be launched or
// reached.
var ErrBrowserConnect = errors.New("browser connection failed")

// viewerCSS reproduces the utility classes the converter emits, so blocks
// render in the browser the way the viewer shows them.
const viewerCSS = `
*, *::before, *::after { box-sizing: border-box; }
body { margin: 0; font-family: ui-sans-serif, system-ui, sans-serif; }
h1, h2, h3, p, ol { margin: 0; padding: 0; }
#sheet { position: absolute; left: -100000px; top: 0; visibility: hidden;
  padding: 40px; font-size: 14px; line-height: 20px; }
.text-2xl { font-size: 24px; line-height: 32px; }
.text-xl { font-size: 20px; line-height: 28px; }
.text-lg { font-size: 18px; line-height: 28px; }
.font-bold { font-weight: 700; }
.font-semibold { font-weight: 600; }
.leading-relaxed { line-height: 1.625; }
.mt-4 { margin-top: 16px; } .mt-5 { margin-top: 20px; } .mt-6 { margin-top: 24px; }
.mb-1 { margin-bottom: 4px; } .mb-2 { margin-bottom: 8px; } .mb-3 { margin-bottom: 12px; }
.mb-4 { margin-bottom: 16px; }
.ml-6 { margin-left: 24px; } .ml-10 { margin-left: 40px; }
.list-decimal { list-style-type: decimal; }
.list-\[lower-alpha\] { list-style-type: lower-alpha; }
.probe { display: flow-root; }
`

// measureJS inserts the fragment into a fresh child of the sheet, reads its
// height and removes it again.
const measureJS = `(fragment) => {
  const sheet = document.getElementById('sheet');
  if (!sheet) { throw new Error('sheet not attached'); }
  const box = document.createElement('div');
  box.className = 'probe';
  box.innerHTML = fragment;
  sheet.appendChild(box);
  try {
    return box.getBoundingClientRect().height;
  } finally {
    sheet.removeChild(box);
  }
}`

// BrowserOptions configures a Browser surface.
type BrowserOptions struct {
	// Bin is the Chrome executable. Empty lets rod find or download one.
	Bin     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Browser measures blocks in headless Chrome via go-rod. The browser is
// launched lazily on first use and shared by all probes.
type Browser struct {
	mu      sync.Mutex
	browser *rod.Browser
	opts    BrowserOptions
}

// NewBrowser creates a Browser surface. No process is started until the
// first Acquire.
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Browser{opts: opts}
}

func (b *Browser) ensureBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New()
	if b.opts.Bin != "" {
		// Containers ship their own Chrome and cannot use the sandbox.
		l = l.Bin(b.opts.Bin).NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.opts.Logger.Info("headless browser started", "control_url", u)
	b.browser = browser
	return browser, nil
}

// Acquire opens a blank page holding an invisible, off-screen sheet of the
// given width.
func (b *Browser) Acquire(ctx context.Context, width int) (paginate.Probe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	doc := fmt.Sprintf(`<!DOCTYPE html><html><head><style>%s</style></head>`+
		`<body><div id="sheet" style="width:%dpx"></div></body></html>`, viewerCSS, width)
	if err := page.Timeout(b.opts.Timeout).SetDocumentContent(doc); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("load sheet: %w", err)
	}
	return &browserProbe{page: page, timeout: b.opts.Timeout}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

type browserProbe struct {
	page    *rod.Page
	timeout time.Duration
	once    sync.Once
	err     error
}

func (p *browserProbe) Height(ctx context.Context, fragment string) (float64, error) {
	res, err := p.page.Context(ctx).Timeout(p.timeout).Evaluate(rod.Eval(measureJS, fragment))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("measure block: %w", err)
	}
	return res.Value.Num(), nil
}

// Release closes the page, taking the sheet with it.
func (p *browserProbe) Release() error {
	p.once.Do(func() {
		p.err = p.page.Close()
	})
	return p.err
}
