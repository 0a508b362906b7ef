package models

import "time"

// Message sources.
const (
	SourceSystem  = "system"
	SourceAdmin   = "admin"
	SourceTrigger = "trigger"
	SourceDirect  = "direct"
)

// Message statuses.
const (
	StatusUnread    = "unread"
	StatusRead      = "read"
	StatusDismissed = "dismissed"
)

// Message is a rendered notification in a user's inbox. Content is the
// rendered block sequence as JSON; Status is the only field mutated after
// creation (read/dismiss actions and the expiry sweep).
type Message struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	UserID      string `gorm:"size:64;not null;index"`
	TemplateKey string `gorm:"size:64"`
	Content     string `gorm:"type:json"`
	Source      string `gorm:"size:16;default:system"`
	Priority    int    `gorm:"default:0"`
	Status      string `gorm:"size:16;default:unread;index"`
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// ContentBlock is one entry in a rendered message's content sequence.
type ContentBlock struct {
	Speaker string   `json:"speaker"`
	Avatar  string   `json:"avatar,omitempty"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Button is an optional action attached to a content block.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}
