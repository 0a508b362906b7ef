package models

import "time"

// DeliveryRecord is durable proof that a (trigger, user) pair has been served.
// The composite primary key is the concurrency control: concurrent delivery
// attempts race on the insert, and exactly one wins.
type DeliveryRecord struct {
	TriggerID   string `gorm:"primaryKey;size:32"`
	UserID      string `gorm:"primaryKey;size:64"`
	MessageID   uint
	Context     string `gorm:"type:json"`
	DeliveredAt time.Time
}
