package config

import (
	"strconv"
	"strings"
)

// ApplyEnv overlays environment variables on cfg. Unset or empty variables
// leave the existing value alone.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.Notify.WebhookURL, "SLACK_WEBHOOK_URL")
	set(&cfg.Notify.Email.Host, "EMAIL_SMTP_HOST")
	set(&cfg.Notify.Email.Port, "EMAIL_SMTP_PORT")
	set(&cfg.Notify.Email.User, "EMAIL_SMTP_USER")
	set(&cfg.Notify.Email.Pass, "EMAIL_SMTP_PASS")
	set(&cfg.Notify.Email.To, "EMAIL_TO")

	set(&cfg.Options.TriggerEvent, "GITHUB_EVENT_NAME")
	set(&cfg.Options.ChromePath, "CHROME_PATH")
	set(&cfg.Options.Timezone, "FORMPROBE_TIMEZONE")

	if getenv("CI") == "true" {
		cfg.Browser.NoSandbox = true
	}
	if v := getenv("HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
}
