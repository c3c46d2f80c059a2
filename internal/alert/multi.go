package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emperorhan/oilube/internal/metrics"
)

// MultiAlerter fans an alert out to every sink. Repeats of the same type and
// network inside the cooldown are dropped.
type MultiAlerter struct {
	sinks    []Alerter
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, sinks ...Alerter) *MultiAlerter {
	return &MultiAlerter{
		sinks:    sinks,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Send delivers to all sinks and joins their errors. A failing sink does not
// stop delivery to the rest.
func (m *MultiAlerter) Send(ctx context.Context, a Alert) error {
	if !m.claim(a) {
		m.logger.Debug("alert suppressed by cooldown", "type", a.Type, "network", a.Network)
		for _, s := range m.sinks {
			metrics.AlertsCooldownSkipped.WithLabelValues(channel(s), string(a.Type)).Inc()
		}
		return nil
	}

	var errs []error
	for _, s := range m.sinks {
		name := channel(s)
		if err := s.Send(ctx, a); err != nil {
			m.logger.Warn("alert delivery failed", "channel", name, "type", a.Type, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(name, string(a.Type)).Inc()
	}
	return errors.Join(errs...)
}

// claim records a send for a's cooldown key unless one happened recently.
func (m *MultiAlerter) claim(a Alert) bool {
	key := a.cooldownKey()
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		return false
	}
	m.lastSent[key] = now
	return true
}

func channel(a Alerter) string {
	if n, ok := a.(interface{ channel() string }); ok {
		return n.channel()
	}
	return "unknown"
}
