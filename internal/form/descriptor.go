package form

import "time"

// Variant tags the shape of a form.
type Variant string

const (
	// Wizard forms pick a program on step one and collect contact details
	// on step two.
	Wizard Variant = "wizard"
	// Landing forms show every field at once.
	Landing Variant = "landing"
)

// SubmitMode controls how the submit control is activated.
type SubmitMode string

const (
	// SubmitScripted scrolls the control into view, waits for it to render
	// and calls el.click() in the page.
	SubmitScripted SubmitMode = "scripted"
	// SubmitClick uses a regular simulated click.
	SubmitClick SubmitMode = "click"
)

// Choice is a dropdown selection.
type Choice struct {
	Selector string
	Option   string
}

// Fields holds the selectors of the contact inputs.
type Fields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Zip       string
}

// ZipLookup describes the city/state autofill triggered by the zip input.
// An empty ResponseURL disables the lookup check.
type ZipLookup struct {
	ResponseURL string
	City        string
	State       string
	WantCity    string
	WantState   string
}

// Timeouts bounds each wait of a run.
type Timeouts struct {
	Step       time.Duration // step-two marker
	Lookup     time.Duration // zip lookup response
	Render     time.Duration // submit control visible and rendered
	Navigation time.Duration // post-submit navigation
	Settle     time.Duration // pause before advancing or submitting
}

// Descriptor is everything a Driver needs to know about one form page.
type Descriptor struct {
	Name    string
	Label   string
	Variant Variant
	URL     string

	Step1      []Choice
	Next       string
	StepMarker string

	Fields Fields
	Zip    ZipLookup

	// Choices are selected after the contact fields are verified.
	Choices []Choice

	// HiddenAttr is the attribute ("name" or "class") that carries the
	// tracking key on hidden inputs. Empty skips the check.
	HiddenAttr string

	Submit     string
	SubmitMode SubmitMode
	Redirect   string

	Timeouts Timeouts
}

// DisplayName returns Label, falling back to Name.
func (d Descriptor) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// Contact is the synthetic lead typed into every form.
type Contact struct {
	FirstNamePrefix string
	LastName        string
	Email           string
	Phone           string
	Zip             string
}
