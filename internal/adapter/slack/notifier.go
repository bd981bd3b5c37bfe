// Package slack forwards on-screen notifications to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

const footer = "FiberSight alerts"

// Notifier posts notifications to a webhook. It implements domain.Notifier.
type Notifier struct {
	webhookURL string
	channel    string
	logger     *slog.Logger
}

// NewNotifier creates a Slack notifier. channel may be empty to use the
// webhook's default channel.
func NewNotifier(webhookURL, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{webhookURL: webhookURL, channel: channel, logger: logger}
}

// Notify posts n as a single attachment coloured by severity.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	msg := &slack.WebhookMessage{
		Channel:     n.channel,
		Attachments: []slack.Attachment{attachmentFor(note)},
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack notification %s: %w", note.ID, err)
	}
	n.logger.Debug("slack notification sent", "alert_id", note.ID)
	return nil
}

func attachmentFor(note domain.Notification) slack.Attachment {
	return slack.Attachment{
		Color: severityColor(note.Severity),
		Title: note.Title,
		Text:  note.Message,
		Fields: []slack.AttachmentField{
			{Title: "Severity", Value: string(note.Severity), Short: true},
			{Title: "Alert", Value: note.ID, Short: true},
		},
		Footer: footer,
		Ts:     json.Number(strconv.FormatInt(note.Timestamp.Unix(), 10)),
	}
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityUrgent:
		return "danger"
	case domain.SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}
