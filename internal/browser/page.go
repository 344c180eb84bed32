package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sznuper/formprobe/internal/form"
)

const (
	// elementTimeout bounds lookups of elements that should already exist.
	elementTimeout = 5 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// Page implements form.Page on a chromedp tab.
type Page struct {
	ctx        context.Context
	navTimeout time.Duration
	logger     *slog.Logger
}

var _ form.Page = (*Page)(nil)

// run executes actions on the tab for as long as ctx allows. When ctx ends
// first its error is returned, so callers see DeadlineExceeded on timeouts.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// runElement is run with a short bound for elements that are expected to be
// on the page already. Running out of that bound means the element is missing.
func (p *Page) runElement(ctx context.Context, selector string, actions ...chromedp.Action) error {
	elemCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()

	err := p.run(elemCtx, actions...)
	if err != nil && ctx.Err() == nil && elemCtx.Err() != nil {
		return fmt.Errorf("%s: %w", selector, form.ErrNotFound)
	}
	return err
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if p.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.navTimeout)
		defer cancel()
	}

	idle := p.listen(ctx, networkIdle(p.mainFrame()))
	defer idle.Stop()

	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return err
	}
	if err := idle.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}
	p.logger.Debug("page loaded", "url", url)
	return nil
}

const selectJS = `(function(sel, label) {
	const el = document.querySelector(sel);
	if (!el) return "missing";
	const opt = Array.from(el.options || []).find(o => o.value === label || o.textContent.trim() === label);
	if (!opt) return "no-option";
	el.value = opt.value;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return "ok";
})(%s, %s)`

func (p *Page) Select(ctx context.Context, selector, option string) error {
	if err := p.runElement(ctx, selector, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return err
	}

	var outcome string
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(selectJS, jsString(selector), jsString(option)), &outcome)); err != nil {
		return err
	}
	switch outcome {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("%s: %w", selector, form.ErrNotFound)
	default:
		return fmt.Errorf("option %q in %s: %w", option, selector, form.ErrNotFound)
	}
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	return p.runElement(ctx, selector, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.runElement(ctx, selector, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

const valueJS = `(function(sel) {
	const el = document.querySelector(sel);
	return el ? { found: true, value: String(el.value ?? "") } : { found: false, value: "" };
})(%s)`

func (p *Page) Value(ctx context.Context, selector string) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(valueJS, jsString(selector)), &res)); err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("%s: %w", selector, form.ErrNotFound)
	}
	return res.Value, nil
}

const scrollJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({ behavior: "smooth", block: "center" });
	return true;
})(%s)`

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	return p.evalFound(ctx, selector, scrollJS)
}

const renderedJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	const rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0 && window.getComputedStyle(el).visibility !== "hidden";
})(%s)`

func (p *Page) WaitRendered(ctx context.Context, selector string) error {
	expr := fmt.Sprintf(renderedJS, jsString(selector))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var ready bool
		if err := p.run(ctx, chromedp.Evaluate(expr, &ready)); err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

const clickJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
})(%s)`

func (p *Page) ScriptClick(ctx context.Context, selector string) error {
	return p.evalFound(ctx, selector, clickJS)
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *Page) ExpectResponse(ctx context.Context, match form.ResponseMatch) form.Waiter {
	return p.listen(ctx, func(ev any) bool {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Response == nil {
			return false
		}
		if !strings.Contains(e.Response.URL, match.URLContains) {
			return false
		}
		return match.Status == 0 || e.Response.Status == int64(match.Status)
	})
}

func (p *Page) ExpectNavigation(ctx context.Context) form.Waiter {
	main := p.mainFrame()
	navigated := false
	return p.listen(ctx, func(ev any) bool {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && (e.Frame.ParentID == "" || e.Frame.ID == main) {
				navigated = true
			}
		case *page.EventLoadEventFired:
			return navigated
		}
		return false
	})
}

func (p *Page) evalFound(ctx context.Context, selector, script string) error {
	var found bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(script, jsString(selector)), &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", selector, form.ErrNotFound)
	}
	return nil
}

func (p *Page) mainFrame() cdp.FrameID {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return ""
	}
	return cdp.FrameID(c.Target.TargetID)
}

// networkIdle matches the main frame's networkAlmostIdle lifecycle event of
// the document loaded after the listener was armed.
func networkIdle(main cdp.FrameID) func(ev any) bool {
	started := false
	return func(ev any) bool {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || (main != "" && e.FrameID != main) {
			return false
		}
		switch e.Name {
		case "init":
			started = true
		case "networkAlmostIdle":
			return started
		}
		return false
	}
}

// listener is a form.Waiter backed by chromedp.ListenTarget. Events are
// delivered on chromedp's event goroutine, one at a time.
type listener struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	stop   func() bool
}

func (p *Page) listen(ctx context.Context, match func(ev any) bool) *listener {
	lctx, cancel := context.WithCancel(p.ctx)
	l := &listener{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	l.stop = context.AfterFunc(ctx, cancel)

	chromedp.ListenTarget(lctx, func(ev any) {
		if match(ev) {
			l.once.Do(func() { close(l.done) })
		}
	})
	return l
}

func (l *listener) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *listener) Stop() {
	l.stop()
	l.cancel()
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
