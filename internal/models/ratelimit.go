package models

// RateWindowEntry is one admitted request in the sliding window, keyed by
// (client, endpoint, timestamp). UnixNanos is part of the primary key so the
// insert is idempotent: two admitted requests at the same instant collapse
// into one row instead of corrupting the count.
type RateWindowEntry struct {
	ClientID  string `gorm:"primaryKey;size:128"`
	Endpoint  string `gorm:"primaryKey;size:64"`
	UnixNanos int64  `gorm:"primaryKey"`
}
