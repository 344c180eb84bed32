package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sznuper/formprobe/internal/params"
)

// fakePage records every call and answers from canned state.
type fakePage struct {
	calls    []string
	values   map[string]string
	missing  map[string]bool
	stalled  map[string]bool // selectors whose waits never finish
	lookupOK bool
	navOK    bool
	location string
	failOn   map[string]error
}

func newFakePage() *fakePage {
	return &fakePage{
		values:   map[string]string{},
		missing:  map[string]bool{},
		stalled:  map[string]bool{},
		failOn:   map[string]error{},
		lookupOK: true,
		navOK:    true,
	}
}

func (p *fakePage) record(call string) error {
	p.calls = append(p.calls, call)
	for prefix, err := range p.failOn {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	return p.record("navigate " + url)
}

func (p *fakePage) Select(_ context.Context, selector, option string) error {
	return p.record("select " + selector + "=" + option)
}

func (p *fakePage) Type(_ context.Context, selector, text string) error {
	return p.record("type " + selector + "=" + text)
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	return p.record("click " + selector)
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if err := p.record("visible " + selector); err != nil {
		return err
	}
	if p.stalled[selector] {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) Value(_ context.Context, selector string) (string, error) {
	if err := p.record("value " + selector); err != nil {
		return "", err
	}
	if p.missing[selector] {
		return "", ErrNotFound
	}
	return p.values[selector], nil
}

func (p *fakePage) ScrollIntoView(_ context.Context, selector string) error {
	return p.record("scroll " + selector)
}

func (p *fakePage) WaitRendered(_ context.Context, selector string) error {
	return p.record("rendered " + selector)
}

func (p *fakePage) ScriptClick(_ context.Context, selector string) error {
	return p.record("scriptclick " + selector)
}

func (p *fakePage) Location(context.Context) (string, error) {
	return p.location, p.record("location")
}

func (p *fakePage) ExpectResponse(_ context.Context, match ResponseMatch) Waiter {
	p.calls = append(p.calls, "expect response "+match.URLContains)
	return fakeWaiter{ok: p.lookupOK}
}

func (p *fakePage) ExpectNavigation(context.Context) Waiter {
	p.calls = append(p.calls, "expect navigation")
	return fakeWaiter{ok: p.navOK}
}

func (p *fakePage) called(prefix string) bool {
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeWaiter struct{ ok bool }

func (w fakeWaiter) Wait(ctx context.Context) error {
	if w.ok {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (fakeWaiter) Stop() {}

var testContact = Contact{
	FirstNamePrefix: "test",
	LastName:        "test",
	Email:           "mikeautotest@yopmail.com",
	Phone:           "7605629999",
	Zip:             "92108",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDriver(tracking params.Set) *Driver {
	return NewDriver(testContact, tracking, testLogger(),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func wizardDescriptor() Descriptor {
	return Descriptor{
		Name:    "homepage",
		Label:   "Homepage",
		Variant: Wizard,
		URL:     "https://www.example.edu/",
		Step1: []Choice{
			{Selector: "#edit-area-of-study", Option: "Psychology and Mental Health"},
			{Selector: "#edit-degree-pmh", Option: "Master of Arts"},
		},
		Next:       "input#edit-actions-wizard-next",
		StepMarker: `input[name="first_name"]`,
		Fields: Fields{
			FirstName: `input[name="first_name"]`,
			LastName:  `input[name="last_name"]`,
			Email:     `input[name="email"]`,
			Phone:     `input[name="mobile_number"]`,
			Zip:       `input[name="zip_code"]`,
		},
		Zip: ZipLookup{
			ResponseURL: "/api/zipcodes",
			City:        `input[name="city"]`,
			State:       `input[name="state"]`,
			WantCity:    "San Diego",
			WantState:   "CA",
		},
		HiddenAttr: "name",
		Submit:     `input.button--submit-final[type="submit"]`,
		SubmitMode: SubmitScripted,
		Redirect:   "/thank-you",
		Timeouts: Timeouts{
			Step:       50 * time.Millisecond,
			Lookup:     50 * time.Millisecond,
			Render:     50 * time.Millisecond,
			Navigation: 50 * time.Millisecond,
		},
	}
}

func happyPage(tracking params.Set, attr string) *fakePage {
	p := newFakePage()
	p.values[`input[name="city"]`] = "San Diego"
	p.values[`input[name="state"]`] = "CA"
	p.values["input.city"] = "San Diego"
	p.values["input.state"] = "CA"
	for _, t := range tracking {
		p.values[`input[`+attr+`*="`+t.Key+`"]`] = t.Value
	}
	p.location = "https://www.example.edu/thank-you"
	return p
}

func TestRun_WizardConfirmed(t *testing.T) {
	tracking := params.Build(time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC))
	page := happyPage(tracking, "name")
	desc := wizardDescriptor()

	res := newTestDriver(tracking).Run(context.Background(), page, desc, "https://www.example.edu/?x=1")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.State != StateConfirmed {
		t.Errorf("state = %q, want %q", res.State, StateConfirmed)
	}
	if res.Label != "Homepage" {
		t.Errorf("label = %q, want %q", res.Label, "Homepage")
	}

	want := []string{
		"navigate https://www.example.edu/?x=1",
		"select #edit-area-of-study=Psychology and Mental Health",
		"select #edit-degree-pmh=Master of Arts",
		"click input#edit-actions-wizard-next",
		`visible input[name="first_name"]`,
		`type input[name="first_name"]=test1700000000000`,
		`type input[name="last_name"]=test`,
		`type input[name="email"]=mikeautotest@yopmail.com`,
		`type input[name="mobile_number"]=7605629999`,
		"expect response /api/zipcodes",
		`type input[name="zip_code"]=92108`,
	}
	for i, w := range want {
		if i >= len(page.calls) || page.calls[i] != w {
			t.Fatalf("call[%d] = %q, want %q\nall calls: %v", i, at(page.calls, i), w, page.calls)
		}
	}

	tail := page.calls[len(page.calls)-6:]
	wantTail := []string{
		"expect navigation",
		`visible input.button--submit-final[type="submit"]`,
		`scroll input.button--submit-final[type="submit"]`,
		`rendered input.button--submit-final[type="submit"]`,
		`scriptclick input.button--submit-final[type="submit"]`,
		"location",
	}
	for i, w := range wantTail {
		if tail[i] != w {
			t.Errorf("tail[%d] = %q, want %q", i, tail[i], w)
		}
	}
}

func TestRun_LandingUsesClassAndChoices(t *testing.T) {
	tracking := params.Build(time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC))
	page := happyPage(tracking, "class")
	page.location = "https://info.example.edu/thank-you-confirmation"

	desc := Descriptor{
		Name:    "paid-media",
		Label:   "Paid Media LP",
		Variant: Landing,
		Fields: Fields{
			FirstName: "input.first-name",
			LastName:  "input.last-name",
			Email:     "input.email",
			Phone:     "input.phone-number",
			Zip:       "input.zip-code",
		},
		Zip: ZipLookup{
			ResponseURL: "/api/zipcodes",
			City:        "input.city",
			State:       "input.state",
			WantCity:    "San Diego",
			WantState:   "CA",
		},
		Choices:    []Choice{{Selector: "select.area-of-study", Option: "Education"}},
		HiddenAttr: "class",
		Submit:     `input.gform_button.button[type="submit"]`,
		SubmitMode: SubmitClick,
		Redirect:   "/thank-you-confirmation",
	}

	res := newTestDriver(tracking).Run(context.Background(), page, desc, "https://info.example.edu/")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if page.called("click input#edit") {
		t.Error("landing form should not click a wizard next button")
	}
	if !page.called(`click input.gform_button.button[type="submit"]`) {
		t.Error("landing form should submit with a plain click")
	}
	if page.called("scriptclick") {
		t.Error("landing form should not use a scripted click")
	}
	if !page.called(`value input[class*="utm_source"]`) {
		t.Error("hidden inputs should be looked up by class")
	}
}

func TestRun_ZipLookupTimeout(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.lookupOK = false

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if k := KindOf(res.Err); k != KindTimeout {
		t.Errorf("kind = %q, want %q", k, KindTimeout)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("error should wrap DeadlineExceeded: %v", res.Err)
	}
	if page.called("scriptclick") || page.called("expect navigation") {
		t.Error("driver must not submit after a lookup timeout")
	}
	if page.called("value") {
		t.Error("driver must not assert fields after a lookup timeout")
	}
}

func TestRun_StepMarkerTimeout(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.stalled[`input[name="first_name"]`] = true

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindTimeout {
		t.Fatalf("kind = %q, want timeout (err=%v)", KindOf(res.Err), res.Err)
	}
	if res.State != StateNavigated {
		t.Errorf("state = %q, want %q", res.State, StateNavigated)
	}
	if page.called("type") {
		t.Error("driver must not type after step one failed")
	}
}

func TestRun_CityMismatch(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.values[`input[name="city"]`] = "Los Angeles"

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindAssertion {
		t.Fatalf("kind = %q, want assertion (err=%v)", KindOf(res.Err), res.Err)
	}
	if !strings.Contains(res.Err.Error(), "city=Los Angeles, state=CA") {
		t.Errorf("error = %q, want city/state detail", res.Err)
	}
}

func TestRun_HiddenInputMissing(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.missing[`input[name*="gclid"]`] = true

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindNotFound {
		t.Fatalf("kind = %q, want not_found (err=%v)", KindOf(res.Err), res.Err)
	}
	if !strings.Contains(res.Err.Error(), "gclid") {
		t.Errorf("error = %q, want key name", res.Err)
	}
}

func TestRun_HiddenInputMismatch(t *testing.T) {
	tracking := params.Build(time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC))
	page := happyPage(tracking, "name")
	page.values[`input[name*="fbclid"]`] = "stale"

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindAssertion {
		t.Fatalf("kind = %q, want assertion (err=%v)", KindOf(res.Err), res.Err)
	}
	if !strings.Contains(res.Err.Error(), "expected March14test, got stale") {
		t.Errorf("error = %q", res.Err)
	}
}

func TestRun_RedirectMismatch(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.location = "https://www.example.edu/request-information"

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindRedirect {
		t.Fatalf("kind = %q, want redirect (err=%v)", KindOf(res.Err), res.Err)
	}
	if !errors.Is(res.Err, ErrRedirect) {
		t.Error("error should wrap ErrRedirect")
	}
	if res.State != StateSubmitted {
		t.Errorf("state = %q, want %q", res.State, StateSubmitted)
	}
}

func TestRun_NavigationTimeout(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.navOK = false

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindTimeout {
		t.Fatalf("kind = %q, want timeout (err=%v)", KindOf(res.Err), res.Err)
	}
}

func TestRun_ErrorNamesForm(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.failOn["navigate"] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	var fe *Error
	if !errors.As(res.Err, &fe) {
		t.Fatalf("error type = %T, want *Error", res.Err)
	}
	if fe.Kind != KindBrowser {
		t.Errorf("kind = %q, want browser", fe.Kind)
	}
	want := "Homepage form failed https://www.example.edu/: navigating: net::ERR_NAME_NOT_RESOLVED"
	if res.Err.Error() != want {
		t.Errorf("error = %q, want %q", res.Err, want)
	}
	if res.OK() {
		t.Error("OK() = true for failed run")
	}
}

func TestKindOf_NotFoundFromPage(t *testing.T) {
	tracking := params.Build(time.Now())
	page := happyPage(tracking, "name")
	page.failOn["select #edit-degree-pmh"] = ErrNotFound

	res := newTestDriver(tracking).Run(context.Background(), page, wizardDescriptor(), "https://www.example.edu/")
	if KindOf(res.Err) != KindNotFound {
		t.Errorf("kind = %q, want not_found", KindOf(res.Err))
	}
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return "<none>"
}
