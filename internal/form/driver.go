package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sznuper/formprobe/internal/params"
)

// State is how far a form run got.
type State string

const (
	StateStart          State = "start"
	StateNavigated      State = "navigated"
	StateStep1Complete  State = "step1_complete"
	StateStep2Populated State = "step2_populated"
	StateFieldsVerified State = "fields_verified"
	StateSubmitted      State = "submitted"
	StateConfirmed      State = "confirmed"
)

// Result is the outcome of one form run. Err is nil only when State is
// StateConfirmed, and is always an *Error otherwise.
type Result struct {
	Name     string
	Label    string
	URL      string
	State    State
	Err      error
	Duration time.Duration
}

// OK reports whether the form was confirmed.
func (r Result) OK() bool { return r.Err == nil }

// Driver fills, verifies and submits forms described by a Descriptor.
// It never retries; the first failing step ends the run.
type Driver struct {
	contact  Contact
	tracking params.Set
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithClock sets the clock used to stamp the first name.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) { d.now = now }
}

// WithSleep replaces the settle delay implementation.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) DriverOption {
	return func(d *Driver) { d.sleep = sleep }
}

// NewDriver creates a Driver that types contact into every form and expects
// tracking to be reflected into hidden inputs.
func NewDriver(contact Contact, tracking params.Set, logger *slog.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		contact:  contact,
		tracking: tracking,
		logger:   logger,
		now:      time.Now,
		sleep:    sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives desc on page, starting from url.
func (d *Driver) Run(ctx context.Context, page Page, desc Descriptor, url string) Result {
	log := d.logger.With("form", desc.Name, "url", url)
	start := time.Now()

	res := Result{
		Name:  desc.Name,
		Label: desc.DisplayName(),
		URL:   url,
		State: StateStart,
	}

	err := d.run(ctx, page, desc, url, &res.State, log)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = &Error{
			Form:  desc.DisplayName(),
			URL:   url,
			State: res.State,
			Kind:  KindOf(err),
			Err:   err,
		}
		log.Error("form failed", "state", res.State, "kind", KindOf(err), "error", err)
		return res
	}

	log.Info("form submitted", "duration", res.Duration)
	return res
}

func (d *Driver) run(ctx context.Context, page Page, desc Descriptor, url string, state *State, log *slog.Logger) error {
	advance := func(s State) {
		*state = s
		log.Debug("state", "state", s)
	}

	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating: %w", err)
	}
	advance(StateNavigated)

	if desc.Variant == Wizard {
		if err := d.stepOne(ctx, page, desc); err != nil {
			return err
		}
	}
	advance(StateStep1Complete)

	if err := d.populate(ctx, page, desc); err != nil {
		return err
	}
	advance(StateStep2Populated)

	if err := d.verify(ctx, page, desc); err != nil {
		return err
	}
	advance(StateFieldsVerified)

	if err := d.sleep(ctx, desc.Timeouts.Settle); err != nil {
		return err
	}

	nav := page.ExpectNavigation(ctx)
	defer nav.Stop()

	if err := d.submit(ctx, page, desc); err != nil {
		return err
	}
	advance(StateSubmitted)

	navCtx, cancel := bounded(ctx, desc.Timeouts.Navigation)
	defer cancel()
	if err := nav.Wait(navCtx); err != nil {
		return fmt.Errorf("waiting for navigation: %w", err)
	}

	loc, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("reading location: %w", err)
	}
	if !strings.Contains(loc, desc.Redirect) {
		return fmt.Errorf("%w: %s", ErrRedirect, loc)
	}
	advance(StateConfirmed)
	return nil
}

func (d *Driver) stepOne(ctx context.Context, page Page, desc Descriptor) error {
	if err := selectAll(ctx, page, desc.Step1); err != nil {
		return err
	}
	if err := d.sleep(ctx, desc.Timeouts.Settle); err != nil {
		return err
	}
	if err := page.Click(ctx, desc.Next); err != nil {
		return fmt.Errorf("clicking %s: %w", desc.Next, err)
	}

	stepCtx, cancel := bounded(ctx, desc.Timeouts.Step)
	defer cancel()
	if err := page.WaitVisible(stepCtx, desc.StepMarker); err != nil {
		return fmt.Errorf("waiting for step two (%s): %w", desc.StepMarker, err)
	}
	return nil
}

func (d *Driver) populate(ctx context.Context, page Page, desc Descriptor) error {
	c := d.contact
	entries := []struct{ selector, text string }{
		{desc.Fields.FirstName, fmt.Sprintf("%s%d", c.FirstNamePrefix, d.now().UnixMilli())},
		{desc.Fields.LastName, c.LastName},
		{desc.Fields.Email, c.Email},
		{desc.Fields.Phone, c.Phone},
	}
	for _, e := range entries {
		if err := page.Type(ctx, e.selector, e.text); err != nil {
			return fmt.Errorf("typing into %s: %w", e.selector, err)
		}
	}

	// The lookup fires while the zip is typed, so listen first.
	var lookup Waiter
	if desc.Zip.ResponseURL != "" {
		lookup = page.ExpectResponse(ctx, ResponseMatch{URLContains: desc.Zip.ResponseURL, Status: 200})
		defer lookup.Stop()
	}

	if err := page.Type(ctx, desc.Fields.Zip, c.Zip); err != nil {
		return fmt.Errorf("typing into %s: %w", desc.Fields.Zip, err)
	}

	if lookup != nil {
		lookupCtx, cancel := bounded(ctx, desc.Timeouts.Lookup)
		defer cancel()
		if err := lookup.Wait(lookupCtx); err != nil {
			return fmt.Errorf("waiting for zip lookup %s: %w", desc.Zip.ResponseURL, err)
		}
	}
	return nil
}

func (d *Driver) verify(ctx context.Context, page Page, desc Descriptor) error {
	if desc.Zip.ResponseURL != "" {
		city, err := page.Value(ctx, desc.Zip.City)
		if err != nil {
			return fmt.Errorf("reading %s: %w", desc.Zip.City, err)
		}
		state, err := page.Value(ctx, desc.Zip.State)
		if err != nil {
			return fmt.Errorf("reading %s: %w", desc.Zip.State, err)
		}
		if city != desc.Zip.WantCity || state != desc.Zip.WantState {
			return fmt.Errorf("%w: city=%s, state=%s", ErrFieldMismatch, city, state)
		}
	}

	if err := selectAll(ctx, page, desc.Choices); err != nil {
		return err
	}

	if desc.HiddenAttr == "" {
		return nil
	}
	for _, p := range d.tracking {
		selector := fmt.Sprintf(`input[%s*="%s"]`, desc.HiddenAttr, strings.ToLower(p.Key))
		got, err := page.Value(ctx, selector)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("input for key %s: %w", p.Key, err)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", selector, err)
		}
		if got != p.Value {
			return fmt.Errorf("%w for %s: expected %s, got %s", ErrFieldMismatch, p.Key, p.Value, got)
		}
	}
	return nil
}

func (d *Driver) submit(ctx context.Context, page Page, desc Descriptor) error {
	if desc.SubmitMode == SubmitClick {
		if err := page.Click(ctx, desc.Submit); err != nil {
			return fmt.Errorf("clicking %s: %w", desc.Submit, err)
		}
		return nil
	}

	renderCtx, cancel := bounded(ctx, desc.Timeouts.Render)
	defer cancel()
	if err := page.WaitVisible(renderCtx, desc.Submit); err != nil {
		return fmt.Errorf("waiting for %s: %w", desc.Submit, err)
	}
	if err := page.ScrollIntoView(ctx, desc.Submit); err != nil {
		return fmt.Errorf("scrolling to %s: %w", desc.Submit, err)
	}

	renderCtx, cancelRender := bounded(ctx, desc.Timeouts.Render)
	defer cancelRender()
	if err := page.WaitRendered(renderCtx, desc.Submit); err != nil {
		return fmt.Errorf("waiting for %s to render: %w", desc.Submit, err)
	}
	if err := page.ScriptClick(ctx, desc.Submit); err != nil {
		return fmt.Errorf("clicking %s: %w", desc.Submit, err)
	}
	return nil
}

func selectAll(ctx context.Context, page Page, choices []Choice) error {
	for _, c := range choices {
		if err := page.Select(ctx, c.Selector, c.Option); err != nil {
			return fmt.Errorf("selecting %q in %s: %w", c.Option, c.Selector, err)
		}
	}
	return nil
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
