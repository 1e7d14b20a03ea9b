// Package notify sends best-effort Slack notifications for operationally
// significant housekeeper events. It is modeled directly on the teacher
// corpus's pkg/slack notifier: a nil/disabled client when no bot token is
// configured, one formatted message per notable event, and errors that are
// logged rather than propagated — this is never on the hot path of a
// purge or an ACME renewal.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Notifier posts ops-visibility messages to a single configured Slack
// channel.
type Notifier struct {
	client  *slack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. If botToken or channel is empty, the
// notifier is disabled: every Notify* call becomes a no-op logged at
// debug level.
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *slack.Client
	if botToken != "" {
		client = slack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether this Notifier has a usable Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// NotifyPurgeFailing is called by the purge dispatcher on the third
// consecutive backend failure for the same purge label (§4.D).
func (n *Notifier) NotifyPurgeFailing(ctx context.Context, label string, consecutiveFailures int) error {
	text := fmt.Sprintf(":rotating_light: housekeeper purge `%s` has failed %d times in a row", label, consecutiveFailures)
	return n.post(ctx, text)
}

// NotifyAcmeRenewalFailed is called after an ACME renewal attempt returns
// an error and the housekeeper falls back to its fixed retry cadence.
func (n *Notifier) NotifyAcmeRenewalFailed(ctx context.Context, providerID string, err error) error {
	text := fmt.Sprintf(":lock: ACME renewal failed for provider `%s`: %s", providerID, err)
	return n.post(ctx, text)
}

func (n *Notifier) post(ctx context.Context, text string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping notification", "text", text)
		return nil
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting slack notification: %w", err)
	}
	return nil
}
