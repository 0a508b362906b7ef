// Package trigger decodes and validates trigger definition configuration.
//
// Definitions store their type-specific settings as a JSON column. Rather
// than reading keys out of an untyped map at fire time, each trigger type
// has a concrete config variant decoded and validated up front, so a
// malformed definition is rejected when read instead of silently skipped.
package trigger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/herald/internal/models"
)

// Config is the decoded type-specific configuration of a trigger definition.
type Config interface {
	triggerConfig()
}

// AttributeConfig configures attribute-set and attribute-equals triggers.
// ExpectedValue is only consulted for attribute-equals.
type AttributeConfig struct {
	FactKey       string `json:"fact_key"`
	ExpectedValue string `json:"expected_value,omitempty"`
}

// RoleConfig configures role-granted and role-revoked triggers.
type RoleConfig struct {
	Role string `json:"role"`
}

// ActivityReturnConfig fires when a user comes back after an absence of at
// least MinAwayHours.
type ActivityReturnConfig struct {
	MinAwayHours int `json:"min_away_hours"`
}

// ActivityIdleConfig fires when a user has been inactive for at least
// IdleHours.
type ActivityIdleConfig struct {
	IdleHours int `json:"idle_hours"`
}

// ScheduleConfig configures scheduled triggers with a 5-field cron
// expression (minute, hour, dom, month, dow).
type ScheduleConfig struct {
	Schedule string `json:"schedule"`
}

// DirectEventConfig configures direct-event triggers fired synchronously by
// an external signal.
type DirectEventConfig struct {
	Event string `json:"event"`
}

func (AttributeConfig) triggerConfig()      {}
func (RoleConfig) triggerConfig()           {}
func (ActivityReturnConfig) triggerConfig() {}
func (ActivityIdleConfig) triggerConfig()   {}
func (ScheduleConfig) triggerConfig()       {}
func (DirectEventConfig) triggerConfig()    {}

// cronParser accepts standard 5-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Decode parses and validates a definition's Config JSON into the variant
// for its trigger type. An unknown trigger type or a config missing required
// fields is an error; the caller treats it as a non-match.
func Decode(def *models.TriggerDefinition) (Config, error) {
	raw := def.Config
	if raw == "" {
		raw = "{}"
	}

	switch def.TriggerType {
	case models.TriggerAttributeSet:
		var cfg AttributeConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.FactKey == "" {
			return nil, fmt.Errorf("trigger: %s: fact_key is required", def.ID)
		}
		return cfg, nil

	case models.TriggerAttributeEquals:
		var cfg AttributeConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.FactKey == "" {
			return nil, fmt.Errorf("trigger: %s: fact_key is required", def.ID)
		}
		if cfg.ExpectedValue == "" {
			return nil, fmt.Errorf("trigger: %s: expected_value is required", def.ID)
		}
		return cfg, nil

	case models.TriggerRoleGranted, models.TriggerRoleRevoked:
		var cfg RoleConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.Role == "" {
			return nil, fmt.Errorf("trigger: %s: role is required", def.ID)
		}
		return cfg, nil

	case models.TriggerActivityReturn:
		var cfg ActivityReturnConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.MinAwayHours <= 0 {
			return nil, fmt.Errorf("trigger: %s: min_away_hours must be positive", def.ID)
		}
		return cfg, nil

	case models.TriggerActivityIdle:
		var cfg ActivityIdleConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.IdleHours <= 0 {
			return nil, fmt.Errorf("trigger: %s: idle_hours must be positive", def.ID)
		}
		return cfg, nil

	case models.TriggerScheduled:
		var cfg ScheduleConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if _, err := cronParser.Parse(cfg.Schedule); err != nil {
			return nil, fmt.Errorf("trigger: %s: schedule %q: %w", def.ID, cfg.Schedule, err)
		}
		return cfg, nil

	case models.TriggerDirectEvent:
		var cfg DirectEventConfig
		if err := unmarshal(def, raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.Event == "" {
			return nil, fmt.Errorf("trigger: %s: event is required", def.ID)
		}
		return cfg, nil

	default:
		return nil, fmt.Errorf("trigger: %s: unknown trigger type %q", def.ID, def.TriggerType)
	}
}

// ScheduleDue reports whether a scheduled trigger is due: the cron schedule
// has a fire time after the definition's last firing and at or before now.
func ScheduleDue(def *models.TriggerDefinition, cfg ScheduleConfig, now time.Time) bool {
	sched, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		return false
	}
	since := def.CreatedAt
	if def.LastFiredAt != nil {
		since = *def.LastFiredAt
	}
	next := sched.Next(since)
	return !next.After(now)
}

// ParseConditions decodes a definition's serialized condition list. An empty
// column is an empty list (vacuous match).
func ParseConditions(def *models.TriggerDefinition) ([]models.Condition, error) {
	if def.Conditions == "" {
		return nil, nil
	}
	var conds []models.Condition
	if err := json.Unmarshal([]byte(def.Conditions), &conds); err != nil {
		return nil, fmt.Errorf("trigger: %s: parse conditions: %w", def.ID, err)
	}
	return conds, nil
}

func unmarshal(def *models.TriggerDefinition, raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("trigger: %s: parse config: %w", def.ID, err)
	}
	return nil
}
