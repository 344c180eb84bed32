package config

import (
	"time"

	"github.com/sznuper/formprobe/internal/notify"
)

const (
	DefaultTimezone          = "America/Los_Angeles"
	DefaultSchedule          = "0 */6 * * *"
	DefaultStepTimeout       = 20 * time.Second
	DefaultLookupTimeout     = 5 * time.Second
	DefaultRenderTimeout     = 5 * time.Second
	DefaultNavigationTimeout = 10 * time.Second
	DefaultSettleDelay       = time.Second
)

// Default returns the built-in configuration: the three production forms,
// headless Chrome at 1920x1080 and the standard report wording.
func Default() *Config {
	return &Config{
		Options: Options{
			Timezone: DefaultTimezone,
			Schedule: DefaultSchedule,
		},
		Browser: Browser{
			Headless:          true,
			Width:             1920,
			Height:            1080,
			Scale:             1,
			NavigationTimeout: "30s",
		},
		Notify: Notify{
			Email: Email{FromName: "Form Tester"},
			Templates: Templates{
				FailureSubject: notify.DefaultFailureSubject,
				FailureBody:    notify.DefaultFailureBody,
				SuccessSubject: notify.DefaultSuccessSubject,
				SuccessBody:    notify.DefaultSuccessBody,
			},
		},
		Contact: Contact{
			FirstNamePrefix: "test",
			LastName:        "test",
			Email:           "mikeautotest@yopmail.com",
			Phone:           "7605629999",
			Zip:             "92108",
		},
		Forms: DefaultForms(),
	}
}

// DefaultForms returns the main-site wizard on the homepage and the
// request-information page, and the paid-media landing page.
func DefaultForms() []Form {
	return []Form{
		mainSiteForm("homepage", "Homepage", "https://www.alliant.edu/"),
		mainSiteForm("request-info", "Request Info", "https://www.alliant.edu/request-information"),
		{
			Name:    "paid-media",
			Label:   "Paid Media LP",
			Variant: "landing",
			URL:     "https://info.alliant.edu/",
			Fields: Fields{
				FirstName: "input.first-name",
				LastName:  "input.last-name",
				Email:     "input.email",
				Phone:     "input.phone-number",
				Zip:       "input.zip-code",
			},
			Zip: Zip{
				ResponseURL: "/api/zipcodes",
				City:        "input.city",
				State:       "input.state",
				WantCity:    "San Diego",
				WantState:   "CA",
			},
			Choices: []Choice{
				{Selector: "select.area-of-study", Option: "Education"},
				{Selector: "select.choose-a-program:not([disabled])", Option: "Administrative Services Credential"},
				{Selector: "select.campus:not([disabled])", Option: "Online"},
			},
			HiddenAttr: "class",
			Submit: Submit{
				Selector: `input.gform_button.button[type="submit"]`,
				Mode:     "click",
			},
			Redirect: "/thank-you-confirmation",
			Timeouts: Timeouts{Navigation: "15s"},
		},
	}
}

func mainSiteForm(name, label, url string) Form {
	return Form{
		Name:    name,
		Label:   label,
		Variant: "wizard",
		URL:     url,
		Step1: []Choice{
			{Selector: "#edit-area-of-study", Option: "Psychology and Mental Health"},
			{Selector: "#edit-degree-pmh", Option: "Master of Arts"},
			{Selector: "#edit-major-pmh-master-of-arts", Option: "Clinical Counseling (MA)"},
			{Selector: "#edit-campus-pmh-clinical-counseling-ma", Option: "Online"},
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
		Zip: Zip{
			ResponseURL: "/api/zipcodes",
			City:        `input[name="city"]`,
			State:       `input[name="state"]`,
			WantCity:    "San Diego",
			WantState:   "CA",
		},
		HiddenAttr: "name",
		Submit: Submit{
			Selector: `input.button--submit-final[type="submit"]`,
			Mode:     "scripted",
		},
		Redirect: "/thank-you",
		Timeouts: Timeouts{Navigation: "10s"},
	}
}
