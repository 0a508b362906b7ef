package relay

import (
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/herald/internal/config"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts mirrored messages to one Slack channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

// NewSlack creates a Slack notifier from configuration.
func NewSlack(cfg config.SlackRelayConfig) *SlackNotifier {
	return &SlackNotifier{
		client:    slackapi.New(cfg.BotToken),
		channelID: cfg.ChannelID,
	}
}

// Name identifies this notifier in logs.
func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts the message text to the configured channel.
func (s *SlackNotifier) Notify(userID, text string) error {
	body := fmt.Sprintf("Delivery for %s\n%s", userID, text)
	_, _, err := s.client.PostMessage(s.channelID, slackapi.MsgOptionText(body, false))
	if err != nil {
		return fmt.Errorf("relay: slack post: %w", err)
	}
	return nil
}
