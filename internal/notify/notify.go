package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Channel delivers one notification.
type Channel interface {
	Name() string
	Send(ctx context.Context, subject, message string) error
}

// DeliveryError is a channel failure.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sending to %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Delivery summarizes one Notify call.
type Delivery struct {
	Subject   string
	Attempted []string
	Delivered []string
	Errors    []*DeliveryError
	DryRun    bool
}

// OK reports whether every attempted channel delivered.
func (d Delivery) OK() bool { return len(d.Errors) == 0 }

// Notifier fans a message out to every configured channel. Channels are
// independent and a failing channel never stops the others.
type Notifier struct {
	channels []Channel
	dryRun   bool
	logger   *slog.Logger
}

// Settings selects the channels. Empty WebhookURL disables chat and empty
// Email.Host disables email.
type Settings struct {
	WebhookURL string
	Email      EmailSettings
	DryRun     bool
}

// New builds a Notifier from settings.
func New(s Settings, logger *slog.Logger) (*Notifier, error) {
	var channels []Channel
	if s.WebhookURL != "" {
		wh, err := NewWebhook(s.WebhookURL)
		if err != nil {
			return nil, err
		}
		channels = append(channels, wh)
	}
	if s.Email.Host != "" {
		em, err := NewEmail(s.Email)
		if err != nil {
			return nil, err
		}
		channels = append(channels, em)
	}
	return NewWithChannels(channels, s.DryRun, logger), nil
}

// NewWithChannels builds a Notifier over explicit channels.
func NewWithChannels(channels []Channel, dryRun bool, logger *slog.Logger) *Notifier {
	return &Notifier{channels: channels, dryRun: dryRun, logger: logger}
}

// Channels returns the names of the enabled channels.
func (n *Notifier) Channels() []string {
	names := make([]string, len(n.channels))
	for i, c := range n.channels {
		names[i] = c.Name()
	}
	return names
}

// Notify sends subject and message to every channel. Failures are logged and
// reported in the Delivery, never returned.
func (n *Notifier) Notify(ctx context.Context, subject, message string) Delivery {
	d := Delivery{Subject: subject, DryRun: n.dryRun}
	if len(n.channels) == 0 {
		n.logger.Info("no notification channels configured", "subject", subject)
		return d
	}

	for _, c := range n.channels {
		d.Attempted = append(d.Attempted, c.Name())
		if n.dryRun {
			n.logger.Info("would notify (dry-run)", "channel", c.Name(), "subject", subject)
			n.logger.Debug("dry-run message", "channel", c.Name(), "message", message)
			continue
		}

		n.logger.Info("sending notification", "channel", c.Name(), "subject", subject)
		if err := c.Send(ctx, subject, message); err != nil {
			de := &DeliveryError{Channel: c.Name(), Err: err}
			d.Errors = append(d.Errors, de)
			n.logger.Error("notify failed", "channel", c.Name(), "error", err)
			continue
		}
		d.Delivered = append(d.Delivered, c.Name())
		n.logger.Debug("notification sent", "channel", c.Name())
	}
	return d
}
