// Package alert delivers operator notifications for the indexer and the
// shadow-record reconciler.
package alert

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

type AlertType string

const (
	AlertTypeUnhealthy      AlertType = "UNHEALTHY"
	AlertTypeRecovery       AlertType = "RECOVERY"
	AlertTypeIndexerLag     AlertType = "INDEXER_LAG"
	AlertTypeShadowMismatch AlertType = "SHADOW_MISMATCH"
)

type Alert struct {
	Type AlertType
	// Network scopes the alert; cooldowns are tracked per type and network.
	Network string
	Title   string
	Message string
	Fields  map[string]string
}

func (a Alert) cooldownKey() string {
	return string(a.Type) + ":" + a.Network
}

// fieldNames returns the field keys in a stable order.
func (a Alert) fieldNames() []string {
	names := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// NoopAlerter drops every alert.
type NoopAlerter struct{}

func (*NoopAlerter) Send(context.Context, Alert) error { return nil }

// FromSinks builds a MultiAlerter over the non-empty sink URLs, or a
// NoopAlerter when none is set.
func FromSinks(slackURL, webhookURL string, cooldown time.Duration, logger *slog.Logger) Alerter {
	var sinks []Alerter
	if slackURL != "" {
		sinks = append(sinks, NewSlackAlerter(slackURL))
	}
	if webhookURL != "" {
		sinks = append(sinks, NewWebhookAlerter(webhookURL))
	}
	if len(sinks) == 0 {
		return &NoopAlerter{}
	}
	return NewMultiAlerter(cooldown, logger, sinks...)
}
