package domain

import (
	"context"
	"errors"
	"time"
)

// Notification is an ephemeral on-screen message raised when a new alert is
// detected. It is fire-and-forget; persisted alert state never depends on it.
type Notification struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"` // zero means the default auto-hide delay
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifiers fans a notification out to every wrapped notifier.
type Notifiers []Notifier

// Notify delivers n to every notifier, even after one fails. The returned
// error joins all failures; callers log it rather than abort the cycle.
func (ns Notifiers) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotificationFor builds the notification announcing a candidate.
func NotificationFor(c Candidate) Notification {
	n := Notification{
		ID:        c.Alert.ID,
		Title:     "Weather Alert",
		Message:   c.Alert.Message,
		Severity:  c.Alert.Severity(),
		Timestamp: c.Alert.Timestamp,
	}
	if c.Rule == RuleRain {
		n.Duration = 3 * time.Second
	}
	return n
}
