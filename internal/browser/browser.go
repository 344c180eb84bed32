package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sznuper/formprobe/internal/form"
)

// Options configures the Chrome instance.
type Options struct {
	Headless  bool
	NoSandbox bool
	ExecPath  string

	Width  int64
	Height int64
	Scale  float64

	// NavigationTimeout bounds Navigate, including the wait for network idle.
	NavigationTimeout time.Duration
}

// Browser owns one Chrome process and its single tab.
type Browser struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	page        *Page
	logger      *slog.Logger
	closeOnce   sync.Once
	closeErr    error
}

// AllocatorOptions returns the exec allocator flags for opts.
func AllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		out = append(out, chromedp.Flag("headless", false))
	}
	if opts.NoSandbox {
		out = append(out,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Width > 0 && opts.Height > 0 {
		out = append(out, chromedp.WindowSize(int(opts.Width), int(opts.Height)))
	}
	return out
}

// Launch starts Chrome, opens a tab and applies the viewport. The returned
// Browser must be closed.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chrome")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "source", "chrome")
		}),
	)

	b := &Browser{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	setup := []chromedp.Action{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
	}
	if opts.Width > 0 && opts.Height > 0 {
		setup = append(setup, chromedp.EmulateViewport(opts.Width, opts.Height, chromedp.EmulateScale(scale)))
	}

	if err := chromedp.Run(tabCtx, setup...); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	b.page = &Page{
		ctx:        tabCtx,
		navTimeout: opts.NavigationTimeout,
		logger:     logger,
	}
	logger.Info("browser started", "headless", opts.Headless, "no_sandbox", opts.NoSandbox,
		"viewport", fmt.Sprintf("%dx%d@%g", opts.Width, opts.Height, scale))
	return b, nil
}

// Page returns the browser's only tab.
func (b *Browser) Page() form.Page { return b.page }

// Close shuts Chrome down. Only the first call does any work.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		err := chromedp.Cancel(b.tabCtx)
		b.tabCancel()
		b.allocCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			b.closeErr = fmt.Errorf("closing chrome: %w", err)
		}
		b.logger.Info("browser closed")
	})
	return b.closeErr
}
