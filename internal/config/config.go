package config

import (
	"fmt"
	"os"
	"time"

	"github.com/a8m/envsubst"
	"github.com/goccy/go-yaml"

	"github.com/sznuper/formprobe/internal/form"
)

// ManualTrigger is the CI event name of a manually started run.
const ManualTrigger = "workflow_dispatch"

type Config struct {
	// Path is the file the config was loaded from, empty for built-in defaults.
	Path string `yaml:"-"`

	Options Options `yaml:"options"`
	Browser Browser `yaml:"browser"`
	Notify  Notify  `yaml:"notify"`
	Contact Contact `yaml:"contact"`
	Forms   []Form  `yaml:"forms" validate:"dive"`
}

// Options are plain string settings that can also be set from the command
// line, one flag per field.
type Options struct {
	Timezone     string `yaml:"timezone"`
	Schedule     string `yaml:"schedule"`
	ChromePath   string `yaml:"chrome_path"`
	TriggerEvent string `yaml:"trigger_event"`
}

type Browser struct {
	Headless          bool    `yaml:"headless"`
	NoSandbox         bool    `yaml:"no_sandbox"`
	Width             int64   `yaml:"width" validate:"gt=0"`
	Height            int64   `yaml:"height" validate:"gt=0"`
	Scale             float64 `yaml:"scale" validate:"gt=0"`
	NavigationTimeout string  `yaml:"navigation_timeout"`
}

type Notify struct {
	WebhookURL string    `yaml:"webhook_url" validate:"omitempty,url"`
	Email      Email     `yaml:"email"`
	Templates  Templates `yaml:"templates"`
}

type Email struct {
	Host     string `yaml:"smtp_host"`
	Port     string `yaml:"smtp_port" validate:"omitempty,numeric"`
	User     string `yaml:"smtp_user" validate:"required_with=Host"`
	Pass     string `yaml:"smtp_pass"`
	To       string `yaml:"to" validate:"required_with=Host"`
	FromName string `yaml:"from_name"`
}

type Templates struct {
	FailureSubject string `yaml:"failure_subject" validate:"required"`
	FailureBody    string `yaml:"failure_body" validate:"required"`
	SuccessSubject string `yaml:"success_subject" validate:"required"`
	SuccessBody    string `yaml:"success_body" validate:"required"`
}

// Contact is the synthetic lead submitted on every form.
type Contact struct {
	FirstNamePrefix string `yaml:"first_name_prefix" validate:"required"`
	LastName        string `yaml:"last_name" validate:"required"`
	Email           string `yaml:"email" validate:"required,email"`
	Phone           string `yaml:"phone" validate:"required,numeric"`
	Zip             string `yaml:"zip" validate:"required"`
}

type Form struct {
	Name       string   `yaml:"name" validate:"required"`
	Label      string   `yaml:"label"`
	Variant    string   `yaml:"variant" validate:"required,oneof=wizard landing"`
	URL        string   `yaml:"url" validate:"required,url"`
	Step1      []Choice `yaml:"step1" validate:"dive"`
	Next       string   `yaml:"next"`
	StepMarker string   `yaml:"step_marker"`
	Fields     Fields   `yaml:"fields"`
	Zip        Zip      `yaml:"zip"`
	Choices    []Choice `yaml:"choices" validate:"dive"`
	HiddenAttr string   `yaml:"hidden_attr" validate:"omitempty,oneof=name class"`
	Submit     Submit   `yaml:"submit"`
	Redirect   string   `yaml:"redirect" validate:"required"`
	Timeouts   Timeouts `yaml:"timeouts"`
}

type Choice struct {
	Selector string `yaml:"selector" validate:"required"`
	Option   string `yaml:"option" validate:"required"`
}

type Fields struct {
	FirstName string `yaml:"first_name" validate:"required"`
	LastName  string `yaml:"last_name" validate:"required"`
	Email     string `yaml:"email" validate:"required"`
	Phone     string `yaml:"phone" validate:"required"`
	Zip       string `yaml:"zip" validate:"required"`
}

type Zip struct {
	ResponseURL string `yaml:"response_url"`
	City        string `yaml:"city" validate:"required_with=ResponseURL"`
	State       string `yaml:"state" validate:"required_with=ResponseURL"`
	WantCity    string `yaml:"want_city" validate:"required_with=ResponseURL"`
	WantState   string `yaml:"want_state" validate:"required_with=ResponseURL"`
}

type Submit struct {
	Selector string `yaml:"selector" validate:"required"`
	Mode     string `yaml:"mode" validate:"omitempty,oneof=scripted click"`
}

// Timeouts are Go duration strings. Empty values take the defaults.
type Timeouts struct {
	Step       string `yaml:"step"`
	Lookup     string `yaml:"lookup"`
	Render     string `yaml:"render"`
	Navigation string `yaml:"navigation"`
	Settle     string `yaml:"settle"`
}

// Manual reports whether the run was started by hand, which also sends a
// notification on success.
func (c *Config) Manual() bool {
	return c.Options.TriggerEvent == ManualTrigger
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Options.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Options.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Options.Timezone, err)
	}
	return loc, nil
}

// FindForm returns the form with the given name, or nil if not found.
func (c *Config) FindForm(name string) *Form {
	for i := range c.Forms {
		if c.Forms[i].Name == name {
			return &c.Forms[i]
		}
	}
	return nil
}

// Descriptor converts f into the driver's typed form description.
func (f Form) Descriptor() (form.Descriptor, error) {
	t, err := f.Timeouts.parse()
	if err != nil {
		return form.Descriptor{}, fmt.Errorf("form %s: %w", f.Name, err)
	}

	mode := form.SubmitMode(f.Submit.Mode)
	if mode == "" {
		mode = form.SubmitScripted
	}

	return form.Descriptor{
		Name:       f.Name,
		Label:      f.Label,
		Variant:    form.Variant(f.Variant),
		URL:        f.URL,
		Step1:      choices(f.Step1),
		Next:       f.Next,
		StepMarker: f.StepMarker,
		Fields: form.Fields{
			FirstName: f.Fields.FirstName,
			LastName:  f.Fields.LastName,
			Email:     f.Fields.Email,
			Phone:     f.Fields.Phone,
			Zip:       f.Fields.Zip,
		},
		Zip: form.ZipLookup{
			ResponseURL: f.Zip.ResponseURL,
			City:        f.Zip.City,
			State:       f.Zip.State,
			WantCity:    f.Zip.WantCity,
			WantState:   f.Zip.WantState,
		},
		Choices:    choices(f.Choices),
		HiddenAttr: f.HiddenAttr,
		Submit:     f.Submit.Selector,
		SubmitMode: mode,
		Redirect:   f.Redirect,
		Timeouts:   t,
	}, nil
}

// Values converts c into the driver's contact record.
func (c Contact) Values() form.Contact {
	return form.Contact{
		FirstNamePrefix: c.FirstNamePrefix,
		LastName:        c.LastName,
		Email:           c.Email,
		Phone:           c.Phone,
		Zip:             c.Zip,
	}
}

func choices(in []Choice) []form.Choice {
	out := make([]form.Choice, len(in))
	for i, c := range in {
		out[i] = form.Choice{Selector: c.Selector, Option: c.Option}
	}
	return out
}

func (t Timeouts) parse() (form.Timeouts, error) {
	var out form.Timeouts
	fields := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"step", t.Step, DefaultStepTimeout, &out.Step},
		{"lookup", t.Lookup, DefaultLookupTimeout, &out.Lookup},
		{"render", t.Render, DefaultRenderTimeout, &out.Render},
		{"navigation", t.Navigation, DefaultNavigationTimeout, &out.Navigation},
		{"settle", t.Settle, DefaultSettleDelay, &out.Settle},
	}
	for _, f := range fields {
		if f.raw == "" {
			*f.dst = f.def
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return form.Timeouts{}, fmt.Errorf("timeouts.%s: %w", f.name, err)
		}
		if d < 0 {
			return form.Timeouts{}, fmt.Errorf("timeouts.%s: must not be negative", f.name)
		}
		*f.dst = d
	}
	return out, nil
}

// Load reads a config file on top of the defaults. A file that lists forms
// replaces the default forms entirely.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data, err = envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	cfg := Default()
	cfg.Forms = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.Forms) == 0 {
		cfg.Forms = DefaultForms()
	}
	cfg.Path = path

	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
