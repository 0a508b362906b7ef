// Package relay mirrors high-priority deliveries to external chat channels.
//
// The relay is strictly best-effort: a failed mirror is logged and never
// affects the delivery that triggered it.
package relay

import (
	"fmt"
	"log"
	"strings"

	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/models"
)

// Notifier posts one message to an external channel.
type Notifier interface {
	Name() string
	Notify(userID, text string) error
}

// Relay fans messages out to the configured notifiers when their priority
// reaches the configured threshold.
type Relay struct {
	minPriority int
	notifiers   []Notifier
}

// New builds a Relay from configuration. Targets without credentials are
// skipped; a Relay with zero notifiers is valid and mirrors nothing.
func New(cfg config.RelayConfig) (*Relay, error) {
	r := &Relay{minPriority: cfg.MinPriority}

	if cfg.Slack.BotToken != "" {
		if cfg.Slack.ChannelID == "" {
			return nil, fmt.Errorf("relay: slack channel_id is required")
		}
		r.notifiers = append(r.notifiers, NewSlack(cfg.Slack))
	}
	if cfg.Discord.BotToken != "" {
		if cfg.Discord.ChannelID == "" {
			return nil, fmt.Errorf("relay: discord channel_id is required")
		}
		d, err := NewDiscord(cfg.Discord)
		if err != nil {
			return nil, err
		}
		r.notifiers = append(r.notifiers, d)
	}
	return r, nil
}

// NewWithNotifiers builds a Relay around explicit notifiers, used by tests.
func NewWithNotifiers(minPriority int, notifiers ...Notifier) *Relay {
	return &Relay{minPriority: minPriority, notifiers: notifiers}
}

// Mirror posts a delivered message to every notifier if its priority meets
// the threshold. Failures are logged per notifier and do not propagate.
func (r *Relay) Mirror(msg *models.Message, blocks []models.ContentBlock) {
	if r == nil || len(r.notifiers) == 0 {
		return
	}
	if msg.Priority < r.minPriority {
		return
	}

	text := formatBlocks(blocks)
	for _, n := range r.notifiers {
		if err := n.Notify(msg.UserID, text); err != nil {
			log.Printf("relay: %s mirror for user %s: %v", n.Name(), msg.UserID, err)
		}
	}
}

// formatBlocks flattens rendered content blocks into one plain-text body.
func formatBlocks(blocks []models.ContentBlock) string {
	var lines []string
	for _, b := range blocks {
		if b.Speaker != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", b.Speaker, b.Text))
		} else {
			lines = append(lines, b.Text)
		}
	}
	return strings.Join(lines, "\n")
}
