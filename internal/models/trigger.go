package models

import "time"

// Trigger type families understood by the scanner.
const (
	TriggerAttributeSet    = "attribute-set"
	TriggerAttributeEquals = "attribute-equals"
	TriggerRoleGranted     = "role-granted"
	TriggerRoleRevoked     = "role-revoked"
	TriggerActivityReturn  = "activity-return"
	TriggerActivityIdle    = "activity-idle"
	TriggerScheduled       = "scheduled"
	TriggerDirectEvent     = "direct-event"
)

// Trigger statuses.
const (
	TriggerActive   = "active"
	TriggerInactive = "inactive"
)

// TriggerDefinition is a stored rule describing when a templated message
// should be delivered. Definitions are authored externally; the engine only
// reads them and deletes a definition once its delivery cap is exhausted.
type TriggerDefinition struct {
	ID                string `gorm:"primaryKey;size:32"`
	Name              string `gorm:"not null"`
	TriggerType       string `gorm:"size:24;not null;index"`
	Config            string `gorm:"type:json"` // type-specific, decoded by internal/trigger
	Conditions        string `gorm:"type:json"` // serialized []Condition
	ConditionOperator string `gorm:"size:4;default:AND"`
	Priority          int    `gorm:"default:0"`
	Repeating         bool   `gorm:"default:false"`
	MaxDeliveries     *int
	Status            string `gorm:"size:16;default:active;index"`
	TemplateKey       string `gorm:"size:64;not null"`
	LastFiredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Condition is a single predicate evaluated against one user's attributes.
// Conditions are stored as a JSON array on the owning TriggerDefinition.
type Condition struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Condition types.
const (
	CondAttributeExists  = "attribute-exists"
	CondAttributeEquals  = "attribute-equals"
	CondRolePresent      = "role-present"
	CondQuestCompleted   = "quest-completed"
	CondNumericThreshold = "numeric-threshold"
)
