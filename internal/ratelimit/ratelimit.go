// Package ratelimit provides restart-durable sliding-window admission
// control.
//
// The purge-then-count-then-insert sequence is not globally serialized, so
// the bound is approximate: heavy concurrency can overshoot slightly. That
// trade-off is deliberate, favoring throughput over exactness. So is the
// fail-open behavior: a storage error admits the request, because losing
// the limiter must not take the API down with it.
package ratelimit

import (
	"log"
	"math"
	"time"

	"github.com/zulandar/herald/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Check admits or rejects a request from clientID against the endpoint's
// sliding window. When rejected, retryAfter is the number of seconds until
// the oldest windowed entry expires.
func Check(db *gorm.DB, clientID, endpoint string, limit int, window time.Duration) (allowed bool, retryAfter int) {
	return checkAt(db, clientID, endpoint, limit, window, time.Now())
}

func checkAt(db *gorm.DB, clientID, endpoint string, limit int, window time.Duration, now time.Time) (bool, int) {
	cutoff := now.Add(-window).UnixNano()

	// Lazy garbage collection: expired entries go on every check.
	if err := db.Where("client_id = ? AND endpoint = ? AND unix_nanos < ?", clientID, endpoint, cutoff).
		Delete(&models.RateWindowEntry{}).Error; err != nil {
		log.Printf("ratelimit: purge %s/%s failed, failing open: %v", clientID, endpoint, err)
		return true, 0
	}

	var count int64
	if err := db.Model(&models.RateWindowEntry{}).
		Where("client_id = ? AND endpoint = ?", clientID, endpoint).
		Count(&count).Error; err != nil {
		log.Printf("ratelimit: count %s/%s failed, failing open: %v", clientID, endpoint, err)
		return true, 0
	}

	if count >= int64(limit) {
		var oldest models.RateWindowEntry
		if err := db.Where("client_id = ? AND endpoint = ?", clientID, endpoint).
			Order("unix_nanos ASC").
			First(&oldest).Error; err != nil {
			log.Printf("ratelimit: oldest %s/%s failed, failing open: %v", clientID, endpoint, err)
			return true, 0
		}
		elapsed := now.Sub(time.Unix(0, oldest.UnixNanos))
		retry := int(math.Ceil((window - elapsed).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return false, retry
	}

	entry := models.RateWindowEntry{
		ClientID:  clientID,
		Endpoint:  endpoint,
		UnixNanos: now.UnixNano(),
	}
	// Idempotent insert: two admissions at the same instant collapse into
	// one row rather than corrupting the count.
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		log.Printf("ratelimit: record %s/%s failed, failing open: %v", clientID, endpoint, err)
	}
	return true, 0
}
