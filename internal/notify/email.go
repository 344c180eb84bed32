package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const (
	defaultSMTPPort = "587"
	defaultFromName = "Form Tester"
)

// EmailSettings configures the SMTP channel. From is always User.
type EmailSettings struct {
	Host     string
	Port     string
	User     string
	Pass     string
	To       string
	FromName string
}

// URL returns the Shoutrrr smtp:// service URL for s.
func (s EmailSettings) URL() (string, error) {
	if s.Host == "" {
		return "", fmt.Errorf("smtp host is required")
	}
	port := s.Port
	if port == "" {
		port = defaultSMTPPort
	}
	fromName := s.FromName
	if fromName == "" {
		fromName = defaultFromName
	}

	u := url.URL{
		Scheme: "smtp",
		Host:   net.JoinHostPort(s.Host, port),
		Path:   "/",
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Pass)
	}

	return applyParams(u.String(), map[string]string{
		"from":     s.User,
		"fromname": fromName,
		"to":       s.To,
	})
}

// SendFunc delivers message through the Shoutrrr service at serviceURL.
type SendFunc func(serviceURL, message string, params map[string]string) error

// Email sends one plain-text mail per notification through Shoutrrr.
type Email struct {
	url  string
	send SendFunc
}

// NewEmail creates an email channel that sends through Shoutrrr.
func NewEmail(s EmailSettings) (*Email, error) {
	return NewEmailWithSender(s, send)
}

// NewEmailWithSender creates an email channel with a custom sender.
func NewEmailWithSender(s EmailSettings, fn SendFunc) (*Email, error) {
	u, err := s.URL()
	if err != nil {
		return nil, err
	}
	return &Email{url: u, send: fn}, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.send(e.url, message, map[string]string{"subject": subject})
}

// send delivers a message via Shoutrrr.
func send(serviceURL, message string, params map[string]string) error {
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return fmt.Errorf("creating sender: %w", err)
	}

	p := types.Params(params)
	for _, e := range sender.Send(message, &p) {
		if e != nil {
			return e
		}
	}
	return nil
}

// applyParams merges params into the query of rawURL.
func applyParams(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing service url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
