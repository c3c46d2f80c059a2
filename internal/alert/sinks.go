package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sinkTimeout = 10 * time.Second

var slackEmoji = map[AlertType]string{
	AlertTypeUnhealthy:      ":warning:",
	AlertTypeRecovery:       ":white_check_mark:",
	AlertTypeIndexerLag:     ":hourglass:",
	AlertTypeShadowMismatch: ":mag:",
}

// SlackAlerter posts to a Slack incoming webhook.
type SlackAlerter struct {
	url    string
	client *http.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{url: webhookURL, client: &http.Client{Timeout: sinkTimeout}}
}

func (*SlackAlerter) channel() string { return "slack" }

func (s *SlackAlerter) Send(ctx context.Context, a Alert) error {
	return postJSON(ctx, s.client, s.url, map[string]string{"text": slackText(a)})
}

func slackText(a Alert) string {
	emoji, ok := slackEmoji[a.Type]
	if !ok {
		emoji = ":warning:"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* oilube/%s: %s\n%s", emoji, a.Type, a.Network, a.Title, a.Message)
	if len(a.Fields) > 0 {
		b.WriteString("\n")
		for _, k := range a.fieldNames() {
			fmt.Fprintf(&b, "- *%s*: %s\n", k, a.Fields[k])
		}
	}
	return b.String()
}

// WebhookAlerter posts a JSON document to an arbitrary endpoint.
type WebhookAlerter struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{url: url, client: &http.Client{Timeout: sinkTimeout}, now: time.Now}
}

func (*WebhookAlerter) channel() string { return "webhook" }

type webhookPayload struct {
	Type    AlertType         `json:"type"`
	Service string            `json:"service"`
	Network string            `json:"network"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Time    string            `json:"time"`
}

func (w *WebhookAlerter) Send(ctx context.Context, a Alert) error {
	return postJSON(ctx, w.client, w.url, webhookPayload{
		Type:    a.Type,
		Service: "oilube",
		Network: a.Network,
		Title:   a.Title,
		Message: a.Message,
		Fields:  a.Fields,
		Time:    w.now().UTC().Format(time.RFC3339),
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("alert sink returned status %d", resp.StatusCode)
	}
	return nil
}
