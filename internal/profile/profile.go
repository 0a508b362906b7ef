// Package profile provides user attribute lookups for condition evaluation
// and message rendering.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/herald/internal/models"
	"gorm.io/gorm"
)

// statColumns is the complete set of numeric stats permitted in
// numeric-threshold conditions, mapped to their profile columns. Operand
// keys from trigger configuration are only ever resolved through this table,
// never interpolated into a query.
var statColumns = map[string]string{
	"login_count":   "login_count",
	"messages_read": "messages_read",
	"days_active":   "days_active",
}

// StatAllowed reports whether a stat name may be used in a numeric condition.
func StatAllowed(name string) bool {
	_, ok := statColumns[name]
	return ok
}

// Get loads a user's profile.
func Get(db *gorm.DB, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("profile: userID is required")
	}
	var p models.UserProfile
	if err := db.Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, fmt.Errorf("profile: load %s: %w", userID, err)
	}
	return &p, nil
}

// HasRole reports whether the user holds the named role.
func HasRole(db *gorm.DB, userID, role string) (bool, error) {
	var count int64
	if err := db.Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("profile: role lookup %s/%s: %w", userID, role, err)
	}
	return count > 0, nil
}

// Fact returns the value of a keyed fact and whether it exists.
func Fact(db *gorm.DB, userID, key string) (string, bool, error) {
	var f models.UserFact
	err := db.Where("user_id = ? AND key = ?", userID, key).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("profile: fact lookup %s/%s: %w", userID, key, err)
	}
	return f.Value, true, nil
}

// Stat returns the value of an allow-listed numeric stat. A stat name
// outside the allow-list is an error, not a lookup.
func Stat(db *gorm.DB, userID, name string) (int, error) {
	column, ok := statColumns[name]
	if !ok {
		return 0, fmt.Errorf("profile: stat %q is not permitted", name)
	}
	var value int
	if err := db.Model(&models.UserProfile{}).
		Where("id = ?", userID).
		Select(column).
		Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("profile: stat lookup %s/%s: %w", userID, name, err)
	}
	return value, nil
}

// sessionGap is the idle span after which a touch counts as a new session.
// Touches inside a session only advance LastSeenAt; the PrevSeenAt shift
// happens once per session boundary, preserving the away gap that
// return-visit triggers measure even when requests arrive back to back.
const sessionGap = 30 * time.Minute

// TouchActivity records user activity: LastSeenAt moves to now, and when the
// touch opens a new session the prior value shifts to PrevSeenAt.
func TouchActivity(db *gorm.DB, userID string) error {
	if userID == "" {
		return fmt.Errorf("profile: userID is required")
	}
	p, err := Get(db, userID)
	if err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"last_seen_at": now,
	}
	if p.LastSeenAt == nil || now.Sub(*p.LastSeenAt) >= sessionGap {
		updates["prev_seen_at"] = p.LastSeenAt
	}
	if err := db.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("profile: touch %s: %w", userID, err)
	}
	return nil
}

// Context builds the token substitution map for rendering a message to this
// user. Username is derived from the handle: the leading segment, without
// any "@" prefix.
func Context(db *gorm.DB, userID string) (map[string]string, error) {
	p, err := Get(db, userID)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"name":     p.DisplayName,
		"handle":   p.Handle,
		"username": deriveUsername(p.Handle),
	}, nil
}

func deriveUsername(handle string) string {
	h := strings.TrimPrefix(handle, "@")
	if i := strings.IndexByte(h, '.'); i > 0 {
		return h[:i]
	}
	return h
}
