// Package notify drains the check-in event bus to external notification
// sinks. Today that is Slack; the Subscriber shape leaves room for more.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/hacksprint/hacksprint/pkg/checkin"
)

// Subscriber consumes a checkin.Bus subscription until ctx is done.
type Subscriber interface {
	Run(ctx context.Context, events <-chan checkin.Event)
}

// SlackNotifier posts a line to a Slack channel for every check-in event.
// If botToken is empty, it becomes a noop (logging only), matching the
// degrade-gracefully posture of the rest of the notification surface.
type SlackNotifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a SlackNotifier.
func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackNotifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a client and a destination.
func (n *SlackNotifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// Run drains events until ctx is cancelled, posting each to Slack.
func (n *SlackNotifier) Run(ctx context.Context, events <-chan checkin.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := n.postCheckIn(ctx, evt); err != nil {
				n.logger.Warn("posting check-in to slack failed", "team_id", evt.TeamID, "error", err)
			}
		}
	}
}

func (n *SlackNotifier) postCheckIn(ctx context.Context, evt checkin.Event) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping check-in post", "team_id", evt.TeamID)
		return nil
	}

	role := "a member"
	if evt.IsTeamLeader {
		role = "the team leader"
	}
	text := fmt.Sprintf(":white_check_mark: *%s* (%s of *%s*) just checked in.", evt.ParticipantName, role, evt.TeamName)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting check-in message to slack: %w", err)
	}
	return nil
}
