package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sznuper/formprobe/internal/browser"
	"github.com/sznuper/formprobe/internal/config"
	"github.com/sznuper/formprobe/internal/form"
	"github.com/sznuper/formprobe/internal/notify"
	"github.com/sznuper/formprobe/internal/params"
)

// ErrFormsFailed is returned by Finish when at least one form failed.
var ErrFormsFailed = errors.New("one or more forms failed")

// Session is an open browser with a single page.
type Session interface {
	Page() form.Page
	Close() error
}

// Launcher starts a browser session.
type Launcher func(ctx context.Context) (Session, error)

// Driver runs one form on a page.
type Driver interface {
	Run(ctx context.Context, page form.Page, desc form.Descriptor, url string) form.Result
}

// DriverFactory builds the Driver for one run from the day's tracking
// parameters.
type DriverFactory func(tracking params.Set) Driver

// Notifier delivers a report. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) notify.Delivery
}

// Runner orchestrates the launch → drive each form → report pipeline.
type Runner struct {
	cfg           *config.Config
	logger        *slog.Logger
	loc           *time.Location
	launch        Launcher
	newDriver     DriverFactory
	notifier      Notifier
	now           func() time.Time
	newRunID      func() string
	dryRun        bool
	notifySuccess bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l Launcher) Option {
	return func(r *Runner) { r.launch = l }
}

// WithDriver replaces the form driver.
func WithDriver(f DriverFactory) Option {
	return func(r *Runner) { r.newDriver = f }
}

// WithNotifier replaces the notifier built from the config.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithClock sets the clock used for tracking parameters and report times.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunID sets the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

// WithDryRun logs notifications instead of sending them.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithNotifySuccess sends the success notification even for runs that were
// not started manually.
func WithNotifySuccess(on bool) Option {
	return func(r *Runner) { r.notifySuccess = on }
}

// New creates a Runner for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.launch == nil {
		bopts, err := BrowserOptions(cfg)
		if err != nil {
			return nil, err
		}
		r.launch = func(ctx context.Context) (Session, error) {
			b, err := browser.Launch(ctx, bopts, logger)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
	}
	if r.newDriver == nil {
		contact := cfg.Contact.Values()
		r.newDriver = func(tracking params.Set) Driver {
			return form.NewDriver(contact, tracking, logger)
		}
	}
	if r.notifier == nil {
		n, err := notify.New(notify.Settings{
			WebhookURL: cfg.Notify.WebhookURL,
			Email: notify.EmailSettings{
				Host:     cfg.Notify.Email.Host,
				Port:     cfg.Notify.Email.Port,
				User:     cfg.Notify.Email.User,
				Pass:     cfg.Notify.Email.Pass,
				To:       cfg.Notify.Email.To,
				FromName: cfg.Notify.Email.FromName,
			},
			DryRun: r.dryRun,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring notifications: %w", err)
		}
		r.notifier = n
	}

	return r, nil
}

// BrowserOptions maps the browser section of cfg to launch options.
func BrowserOptions(cfg *config.Config) (browser.Options, error) {
	var nav time.Duration
	if cfg.Browser.NavigationTimeout != "" {
		d, err := time.ParseDuration(cfg.Browser.NavigationTimeout)
		if err != nil {
			return browser.Options{}, fmt.Errorf("browser.navigation_timeout: %w", err)
		}
		nav = d
	}
	return browser.Options{
		Headless:          cfg.Browser.Headless,
		NoSandbox:         cfg.Browser.NoSandbox,
		ExecPath:          cfg.Options.ChromePath,
		Width:             cfg.Browser.Width,
		Height:            cfg.Browser.Height,
		Scale:             cfg.Browser.Scale,
		NavigationTimeout: nav,
	}, nil
}

// FindForm returns the configured form with the given name, or nil if not found.
func (r *Runner) FindForm(name string) *config.Form {
	return r.cfg.FindForm(name)
}

// RunAll runs every configured form.
func (r *Runner) RunAll(ctx context.Context) Report {
	return r.Run(ctx, r.cfg.Forms...)
}

// Run drives forms one after another on a single browser page. A failing
// form never stops the forms after it. The browser is closed before Run
// returns.
func (r *Runner) Run(ctx context.Context, forms ...config.Form) Report {
	rep := Report{
		RunID:   r.newRunID(),
		Started: r.now(),
	}
	log := r.logger.With("run_id", rep.RunID)
	log.Info("run started", "forms", len(forms))

	tracking := params.Today(r.now, r.loc)
	log.Debug("tracking parameters", "query", tracking.Encode())

	rep.Results = r.drive(ctx, log, tracking, forms)
	rep.Duration = r.now().Sub(rep.Started)

	log.Info("run finished",
		"forms", len(rep.Results),
		"failed", len(rep.Failed()),
		"duration", rep.Duration,
	)
	return rep
}

func (r *Runner) drive(ctx context.Context, log *slog.Logger, tracking params.Set, forms []config.Form) []form.Result {
	session, err := r.launch(ctx)
	if err != nil {
		log.Error("browser launch failed", "error", err)
		return []form.Result{{
			Name:  "browser",
			Label: BrowserLabel,
			State: form.StateStart,
			Err:   fmt.Errorf("launching browser: %w", err),
		}}
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing browser", "error", err)
		}
	}()

	page := session.Page()
	driver := r.newDriver(tracking)

	results := make([]form.Result, 0, len(forms))
	for _, f := range forms {
		results = append(results, r.driveOne(ctx, log, driver, page, tracking, f))
	}
	return results
}

func (r *Runner) driveOne(ctx context.Context, log *slog.Logger, driver Driver, page form.Page, tracking params.Set, f config.Form) form.Result {
	desc, err := f.Descriptor()
	if err != nil {
		log.Error("invalid form", "form", f.Name, "error", err)
		return form.Result{Name: f.Name, Label: f.Label, URL: f.URL, State: form.StateStart, Err: err}
	}

	target, err := tracking.Apply(desc.URL)
	if err != nil {
		log.Error("invalid form url", "form", f.Name, "error", err)
		return form.Result{Name: desc.Name, Label: desc.DisplayName(), URL: desc.URL, State: form.StateStart, Err: err}
	}

	log.Info("testing form", "form", desc.Name, "url", target)
	return driver.Run(ctx, page, desc, target)
}

// Finish sends the notification for rep and returns ErrFormsFailed if any
// form failed. Successful runs notify only when started manually or when
// success notifications were requested.
func (r *Runner) Finish(ctx context.Context, rep *Report) error {
	log := r.logger.With("run_id", rep.RunID)
	tmpl := r.cfg.Notify.Templates
	data := notify.BuildReportData(rep.RunID, rep.Started.In(r.loc), rep.FailureLines(), rep.PassedLabels())

	if !rep.OK() {
		if err := r.send(ctx, rep, tmpl.FailureSubject, tmpl.FailureBody, data); err != nil {
			log.Error("rendering failure report", "error", err)
		}
		return fmt.Errorf("%w: %d of %d", ErrFormsFailed, len(rep.Failed()), len(rep.Results))
	}

	log.Info("all form tests passed", "forms", len(rep.Results))
	if r.cfg.Manual() || r.notifySuccess {
		if err := r.send(ctx, rep, tmpl.SuccessSubject, tmpl.SuccessBody, data); err != nil {
			log.Error("rendering success report", "error", err)
		}
	}
	return nil
}

func (r *Runner) send(ctx context.Context, rep *Report, subjectTmpl, bodyTmpl string, data notify.ReportData) error {
	subject, err := notify.Render(subjectTmpl, data)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	body, err := notify.Render(bodyTmpl, data)
	if err != nil {
		return fmt.Errorf("body: %w", err)
	}

	d := r.notifier.Notify(ctx, subject, body)
	rep.Delivery = &d
	rep.Notified = true
	return nil
}

// Execute runs forms and reports the result. With no forms it runs every
// configured form.
func (r *Runner) Execute(ctx context.Context, forms ...config.Form) (Report, error) {
	if len(forms) == 0 {
		forms = r.cfg.Forms
	}
	rep := r.Run(ctx, forms...)
	err := r.Finish(ctx, &rep)
	return rep, err
}
