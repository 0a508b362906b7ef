// Package ledger keeps idempotent records of (trigger, user) deliveries.
//
// The DeliveryRecord composite primary key is the only synchronization
// between concurrent scanners, or a scanner racing a direct-event call, for
// the same pair. No in-process lock is involved: correctness rests on the
// storage-level uniqueness constraint.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/herald/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShouldDeliver reports whether a delivery for (def, user) may proceed.
//
// A non-repeating definition with an existing record for this user is not
// delivered again. A capped definition whose total delivery count has
// reached max_deliveries is deleted here — the destructive side effect is
// deliberately part of the predicate, so no caller can deliver past the cap.
func ShouldDeliver(db *gorm.DB, def *models.TriggerDefinition, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("ledger: userID is required")
	}

	if !def.Repeating {
		var count int64
		if err := db.Model(&models.DeliveryRecord{}).
			Where("trigger_id = ? AND user_id = ?", def.ID, userID).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("ledger: check %s/%s: %w", def.ID, userID, err)
		}
		if count > 0 {
			return false, nil
		}
	}

	if def.MaxDeliveries != nil {
		var total int64
		if err := db.Model(&models.DeliveryRecord{}).
			Where("trigger_id = ?", def.ID).
			Count(&total).Error; err != nil {
			return false, fmt.Errorf("ledger: count %s: %w", def.ID, err)
		}
		if total >= int64(*def.MaxDeliveries) {
			if err := db.Where("id = ?", def.ID).
				Delete(&models.TriggerDefinition{}).Error; err != nil {
				return false, fmt.Errorf("ledger: retire %s: %w", def.ID, err)
			}
			return false, nil
		}
	}

	return true, nil
}

// Record writes the delivery record for (def, user). It returns false when
// another actor already delivered: either the conditional insert lost the
// race on the composite key, or a capped definition filled up between the
// ShouldDeliver check and here. Losing is not an error; the caller must not
// report the delivery as its own.
func Record(db *gorm.DB, def *models.TriggerDefinition, userID string, messageID uint, context map[string]string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("ledger: userID is required")
	}

	ctxJSON := "{}"
	if len(context) > 0 {
		data, err := json.Marshal(context)
		if err != nil {
			return false, fmt.Errorf("ledger: marshal context for %s/%s: %w", def.ID, userID, err)
		}
		ctxJSON = string(data)
	}

	rec := models.DeliveryRecord{
		TriggerID:   def.ID,
		UserID:      userID,
		MessageID:   messageID,
		Context:     ctxJSON,
		DeliveredAt: time.Now(),
	}

	won := false
	err := db.Transaction(func(tx *gorm.DB) error {
		if def.MaxDeliveries != nil {
			// Lock the definition row so concurrent capped deliveries
			// serialize their count-then-commit sequence.
			var locked models.TriggerDefinition
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", def.ID).
				Limit(1).
				Find(&locked).Error; err != nil {
				return fmt.Errorf("ledger: lock %s: %w", def.ID, err)
			}
		}

		// A repeating definition keeps one row per pair and refreshes it on
		// each delivery; only non-repeating pairs treat a conflict as lost.
		conflict := clause.OnConflict{DoNothing: true}
		if def.Repeating {
			conflict = clause.OnConflict{
				Columns:   []clause.Column{{Name: "trigger_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"message_id", "context", "delivered_at"}),
			}
		}
		result := tx.Clauses(conflict).Create(&rec)
		if result.Error != nil {
			return fmt.Errorf("ledger: record %s/%s: %w", def.ID, userID, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil // lost the race; harmless
		}

		if def.MaxDeliveries != nil {
			var total int64
			if err := tx.Model(&models.DeliveryRecord{}).
				Where("trigger_id = ?", def.ID).
				Count(&total).Error; err != nil {
				return fmt.Errorf("ledger: count %s: %w", def.ID, err)
			}
			if total > int64(*def.MaxDeliveries) {
				// Cap filled between check and insert; withdraw this record.
				if err := tx.Where("trigger_id = ? AND user_id = ?", def.ID, userID).
					Delete(&models.DeliveryRecord{}).Error; err != nil {
					return fmt.Errorf("ledger: withdraw %s/%s: %w", def.ID, userID, err)
				}
				return nil
			}
			if total == int64(*def.MaxDeliveries) {
				if err := tx.Where("id = ?", def.ID).
					Delete(&models.TriggerDefinition{}).Error; err != nil {
					return fmt.Errorf("ledger: retire %s: %w", def.ID, err)
				}
			}
		}

		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// Count returns the total number of deliveries recorded for a trigger.
func Count(db *gorm.DB, triggerID string) (int64, error) {
	var total int64
	if err := db.Model(&models.DeliveryRecord{}).
		Where("trigger_id = ?", triggerID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("ledger: count %s: %w", triggerID, err)
	}
	return total, nil
}
