package relay

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/herald/internal/config"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts mirrored messages to one Discord channel over the
// REST API; no gateway connection is opened.
type DiscordNotifier struct {
	sess      discordSession
	channelID string
}

// NewDiscord creates a Discord notifier from configuration.
func NewDiscord(cfg config.DiscordRelayConfig) (*DiscordNotifier, error) {
	sess, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("relay: discord session: %w", err)
	}
	return &DiscordNotifier{sess: sess, channelID: cfg.ChannelID}, nil
}

// Name identifies this notifier in logs.
func (d *DiscordNotifier) Name() string { return "discord" }

// Notify posts the message text to the configured channel.
func (d *DiscordNotifier) Notify(userID, text string) error {
	body := fmt.Sprintf("Delivery for %s\n%s", userID, text)
	if _, err := d.sess.ChannelMessageSend(d.channelID, body); err != nil {
		return fmt.Errorf("relay: discord post: %w", err)
	}
	return nil
}
