package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookPayload struct {
	Text string `json:"text"`
}

// Webhook posts {"text": "*subject*\nmessage"} to a chat incoming webhook.
type Webhook struct {
	client   *resty.Client
	endpoint string
}

// NewWebhook creates a webhook channel with its own resty client.
func NewWebhook(endpoint string) (*Webhook, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	return NewWebhookWithClient(endpoint, client)
}

// NewWebhookWithClient creates a webhook channel on client. Retries are
// always disabled.
func NewWebhookWithClient(endpoint string, client *resty.Client) (*Webhook, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	client.SetRetryCount(0)

	return &Webhook{client: client, endpoint: endpoint}, nil
}

func (w *Webhook) Name() string { return "webhook" }

// Payload returns the exact request body sent for subject and message.
func Payload(subject, message string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(webhookPayload{Text: fmt.Sprintf("*%s*\n%s", subject, message)}); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (w *Webhook) Send(ctx context.Context, subject, message string) error {
	body, err := Payload(subject, message)
	if err != nil {
		return err
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(w.endpoint)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	if !resp.IsSuccess() {
		msg := strings.TrimSpace(resp.String())
		if msg == "" {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode())
		}
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), msg)
	}
	return nil
}
