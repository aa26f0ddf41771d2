package alert

import (
	"context"
	"errors"
	"fmt"
)

// Notification describes one predicted next-day price move worth flagging.
type Notification struct {
	ItemName       string  `json:"item_name"`
	Day            string  `json:"day"` // last observed day
	CurrentPrice   float64 `json:"current_price"`
	PredictedPrice float64 `json:"predicted_price"`
	ChangePct      float64 `json:"change_pct"`
	Model          string  `json:"model"`
}

// Direction reports whether the predicted move is up or down.
func (n *Notification) Direction() string {
	if n.ChangePct < 0 {
		return "down"
	}
	return "up"
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
