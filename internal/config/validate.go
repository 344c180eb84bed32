package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg for structural errors and for settings that only
// fail later at run time: durations, the cron schedule, the time zone and
// the wizard-specific selectors.
func Validate(cfg *Config) error {
	var errs []error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q check", fieldPath(fe.Namespace()), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if len(cfg.Forms) == 0 {
		errs = append(errs, errors.New("forms: at least one form is required"))
	}

	if _, err := cfg.Location(); err != nil {
		errs = append(errs, fmt.Errorf("options.timezone: %w", err))
	}

	if cfg.Options.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Options.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("options.schedule: %w", err))
		}
	}

	if cfg.Browser.NavigationTimeout != "" {
		if _, err := time.ParseDuration(cfg.Browser.NavigationTimeout); err != nil {
			errs = append(errs, fmt.Errorf("browser.navigation_timeout: %w", err))
		}
	}

	seen := make(map[string]bool)
	for i, f := range cfg.Forms {
		if f.Name != "" && seen[f.Name] {
			errs = append(errs, fmt.Errorf("forms[%d]: duplicate name %q", i, f.Name))
		}
		seen[f.Name] = true

		if f.Variant == "wizard" {
			if len(f.Step1) == 0 {
				errs = append(errs, fmt.Errorf("forms[%d] %s: wizard needs step1 choices", i, f.Name))
			}
			if f.Next == "" || f.StepMarker == "" {
				errs = append(errs, fmt.Errorf("forms[%d] %s: wizard needs next and step_marker", i, f.Name))
			}
		}
		if _, err := f.Timeouts.parse(); err != nil {
			errs = append(errs, fmt.Errorf("forms[%d] %s: %w", i, f.Name, err))
		}
	}

	return errors.Join(errs...)
}

// fieldPath turns "Config.Forms[0].Fields.Zip" into "forms[0].fields.zip".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}
