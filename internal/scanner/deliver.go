package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/zulandar/herald/internal/broadcast"
	"github.com/zulandar/herald/internal/condition"
	"github.com/zulandar/herald/internal/inbox"
	"github.com/zulandar/herald/internal/ledger"
	"github.com/zulandar/herald/internal/models"
	"github.com/zulandar/herald/internal/profile"
	"github.com/zulandar/herald/internal/render"
	"github.com/zulandar/herald/internal/trigger"
	"gorm.io/gorm"
)

// pushPayload is the data carried by a "message" push event.
type pushPayload struct {
	MessageID   uint                  `json:"message_id"`
	TriggerID   string                `json:"trigger_id,omitempty"`
	TemplateKey string                `json:"template_key"`
	Priority    int                   `json:"priority"`
	Blocks      []models.ContentBlock `json:"blocks"`
}

// deliver runs the full delivery sequence for one (definition, user) pair:
// conditions, ledger check, render, persist, ledger record, push. Every
// failure is local to the pair — logged and swallowed so the surrounding
// scan continues. Returns whether a message was delivered.
func (s *Scanner) deliver(def *models.TriggerDefinition, userID, source string, triggerCtx map[string]string) bool {
	conds, err := trigger.ParseConditions(def)
	if err != nil {
		log.Printf("scanner: %s: %v", def.ID, err)
		return false
	}
	if !condition.Evaluate(s.DB, conds, def.ConditionOperator, userID) {
		return false
	}

	ok, err := ledger.ShouldDeliver(s.DB, def, userID)
	if err != nil {
		log.Printf("scanner: ledger check %s/%s: %v", def.ID, userID, err)
		return false
	}
	if !ok {
		return false
	}

	blocks, err := s.renderTemplate(def.TemplateKey, userID)
	if err != nil {
		log.Printf("scanner: render %s for %s: %v", def.TemplateKey, userID, err)
		return false
	}

	msg, err := inbox.Create(s.DB, userID, blocks, inbox.CreateOpts{
		TemplateKey: def.TemplateKey,
		Source:      source,
		Priority:    def.Priority,
	})
	if err != nil {
		log.Printf("scanner: persist message for %s/%s: %v", def.ID, userID, err)
		return false
	}

	won, err := ledger.Record(s.DB, def, userID, msg.ID, triggerCtx)
	if err != nil {
		log.Printf("scanner: record %s/%s: %v", def.ID, userID, err)
		return false
	}
	if !won {
		// Another actor delivered first; withdraw our duplicate message.
		if err := s.DB.Delete(&models.Message{}, msg.ID).Error; err != nil {
			log.Printf("scanner: withdraw message %d: %v", msg.ID, err)
		}
		return false
	}

	fmt.Fprintf(s.Out, "Delivered %s to %s (message %d)\n", def.ID, userID, msg.ID)

	s.Broadcaster.Publish(userID, broadcast.EventMessage, pushPayload{
		MessageID:   msg.ID,
		TriggerID:   def.ID,
		TemplateKey: def.TemplateKey,
		Priority:    def.Priority,
		Blocks:      blocks,
	})
	s.Relay.Mirror(msg, blocks)
	return true
}

// renderTemplate loads a dialogue template and renders it for the user with
// one context lookup.
func (s *Scanner) renderTemplate(templateKey, userID string) ([]models.ContentBlock, error) {
	var tpl models.DialogueTemplate
	if err := s.DB.Where("key = ?", templateKey).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("scanner: template %q not found", templateKey)
		}
		return nil, fmt.Errorf("scanner: load template %q: %w", templateKey, err)
	}

	var blocks []models.ContentBlock
	if err := json.Unmarshal([]byte(tpl.Blocks), &blocks); err != nil {
		return nil, fmt.Errorf("scanner: decode template %q: %w", templateKey, err)
	}

	ctx, err := profile.Context(s.DB, userID)
	if err != nil {
		return nil, err
	}
	return render.Blocks(blocks, ctx), nil
}

// FireEvent runs the delivery sequence synchronously for direct-event
// definitions matching the named event, for exactly one user. It exists so
// latency-sensitive triggers (login greetings, purchases) skip the poll
// interval. Returns the number of messages delivered.
func (s *Scanner) FireEvent(event, userID string) (int, error) {
	if event == "" {
		return 0, fmt.Errorf("scanner: event is required")
	}
	if userID == "" {
		return 0, fmt.Errorf("scanner: userID is required")
	}

	defs, err := s.activeDefs(models.TriggerDirectEvent)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range defs {
		def := &defs[i]
		cfg, err := trigger.Decode(def)
		if err != nil {
			log.Printf("scanner: skip %s: %v", def.ID, err)
			continue
		}
		if cfg.(trigger.DirectEventConfig).Event != event {
			continue
		}
		if s.deliver(def, userID, models.SourceDirect, map[string]string{"event": event}) {
			delivered++
		}
	}
	return delivered, nil
}
