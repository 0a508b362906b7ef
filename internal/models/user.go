package models

import "time"

// UserProfile holds the per-user attributes triggers evaluate against. The
// numeric stat columns are the complete set allowed in numeric-threshold
// conditions; condition configuration never names a column directly.
type UserProfile struct {
	ID           string `gorm:"primaryKey;size:64"`
	DisplayName  string `gorm:"size:128"`
	Handle       string `gorm:"size:128;index"`
	LoginCount   int    `gorm:"default:0"`
	MessagesRead int    `gorm:"default:0"`
	DaysActive   int    `gorm:"default:0"`
	LastSeenAt   *time.Time `gorm:"index"`
	PrevSeenAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRole grants a named role to a user.
type UserRole struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Role      string `gorm:"primaryKey;size:64"`
	GrantedAt time.Time
}

// UserFact is one keyed fact about a user, written by external systems
// (quest completion, onboarding steps, feature flags).
type UserFact struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:256"`
	UpdatedAt time.Time
}
