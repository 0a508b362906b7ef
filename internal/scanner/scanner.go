// Package scanner polls trigger definitions and drives message delivery.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zulandar/herald/internal/broadcast"
	"github.com/zulandar/herald/internal/inbox"
	"github.com/zulandar/herald/internal/models"
	"github.com/zulandar/herald/internal/profile"
	"github.com/zulandar/herald/internal/relay"
	"github.com/zulandar/herald/internal/trigger"
	"gorm.io/gorm"
)

const (
	defaultPollInterval = 10 * time.Second

	// returnWindow bounds how recently a user must have been seen for a
	// return-visit trigger to consider them "just returned".
	returnWindow = time.Hour
)

// Scanner evaluates trigger definitions against candidate users each poll
// cycle and delivers matching messages.
type Scanner struct {
	DB          *gorm.DB
	Broadcaster *broadcast.Broadcaster
	Relay       *relay.Relay
	Out         io.Writer
}

// New creates a Scanner. relay may be nil.
func New(db *gorm.DB, b *broadcast.Broadcaster, r *relay.Relay, out io.Writer) (*Scanner, error) {
	if db == nil {
		return nil, fmt.Errorf("scanner: db is required")
	}
	if b == nil {
		return nil, fmt.Errorf("scanner: broadcaster is required")
	}
	if out == nil {
		out = io.Discard
	}
	return &Scanner{DB: db, Broadcaster: b, Relay: r, Out: out}, nil
}

// Run executes the poll loop until ctx is cancelled. Each cycle's phases are
// isolated: a failing phase is logged and the rest of the cycle proceeds.
func (s *Scanner) Run(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	fmt.Fprintf(s.Out, "Scanner starting (poll every %s)...\n", pollInterval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.Out, "Scanner stopped.\n")
			return nil
		default:
		}

		s.RunCycle()
		sleepWithContext(ctx, pollInterval)
	}
}

// RunCycle performs one full scan over every trigger family plus the message
// expiry sweep.
func (s *Scanner) RunCycle() {
	if err := s.scanFactTriggers(); err != nil {
		log.Printf("scanner: fact triggers: %v", err)
	}
	if err := s.scanRoleTriggers(); err != nil {
		log.Printf("scanner: role triggers: %v", err)
	}
	if err := s.scanActivityTriggers(); err != nil {
		log.Printf("scanner: activity triggers: %v", err)
	}
	if err := s.scanScheduledTriggers(); err != nil {
		log.Printf("scanner: scheduled triggers: %v", err)
	}
	if swept, err := inbox.SweepExpired(s.DB); err != nil {
		log.Printf("scanner: expiry sweep: %v", err)
	} else if swept > 0 {
		fmt.Fprintf(s.Out, "Swept %d expired messages\n", swept)
	}
}

// activeDefs loads active definitions of the given trigger types.
func (s *Scanner) activeDefs(types ...string) ([]models.TriggerDefinition, error) {
	var defs []models.TriggerDefinition
	if err := s.DB.Where("status = ? AND trigger_type IN ?", models.TriggerActive, types).
		Order("priority DESC, id ASC").
		Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("scanner: load definitions: %w", err)
	}
	return defs, nil
}

// allUserIDs returns every known user, the candidate set for fact-based and
// scheduled triggers.
func (s *Scanner) allUserIDs() ([]string, error) {
	var ids []string
	if err := s.DB.Model(&models.UserProfile{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("scanner: load users: %w", err)
	}
	return ids, nil
}

// scanFactTriggers handles attribute-set and attribute-equals definitions
// against all users.
func (s *Scanner) scanFactTriggers() error {
	defs, err := s.activeDefs(models.TriggerAttributeSet, models.TriggerAttributeEquals)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}

	userIDs, err := s.allUserIDs()
	if err != nil {
		return err
	}

	for i := range defs {
		def := &defs[i]
		cfg, err := trigger.Decode(def)
		if err != nil {
			log.Printf("scanner: skip %s: %v", def.ID, err)
			continue
		}
		ac := cfg.(trigger.AttributeConfig)

		for _, userID := range userIDs {
			value, ok, err := profile.Fact(s.DB, userID, ac.FactKey)
			if err != nil {
				log.Printf("scanner: fact lookup %s/%s: %v", userID, ac.FactKey, err)
				continue
			}
			fired := false
			switch def.TriggerType {
			case models.TriggerAttributeSet:
				fired = ok
			case models.TriggerAttributeEquals:
				fired = ok && value == ac.ExpectedValue
			}
			if !fired {
				continue
			}
			s.deliver(def, userID, models.SourceTrigger, map[string]string{"fact_key": ac.FactKey})
		}
	}
	return nil
}

// scanRoleTriggers handles role-granted and role-revoked definitions.
// Granted triggers scan the role's holders; revoked triggers scan everyone
// else.
func (s *Scanner) scanRoleTriggers() error {
	defs, err := s.activeDefs(models.TriggerRoleGranted, models.TriggerRoleRevoked)
	if err != nil {
		return err
	}

	for i := range defs {
		def := &defs[i]
		cfg, err := trigger.Decode(def)
		if err != nil {
			log.Printf("scanner: skip %s: %v", def.ID, err)
			continue
		}
		role := cfg.(trigger.RoleConfig).Role

		holders := s.DB.Model(&models.UserRole{}).
			Select("user_id").
			Where("role = ?", role)

		var candidates []string
		query := s.DB.Model(&models.UserProfile{})
		if def.TriggerType == models.TriggerRoleGranted {
			query = query.Where("id IN (?)", holders)
		} else {
			query = query.Where("id NOT IN (?)", holders)
		}
		if err := query.Pluck("id", &candidates).Error; err != nil {
			log.Printf("scanner: candidates for %s: %v", def.ID, err)
			continue
		}

		for _, userID := range candidates {
			s.deliver(def, userID, models.SourceTrigger, map[string]string{"role": role})
		}
	}
	return nil
}

// scanActivityTriggers handles return-visit and idle-duration definitions
// against activity-window candidate sets.
func (s *Scanner) scanActivityTriggers() error {
	defs, err := s.activeDefs(models.TriggerActivityReturn, models.TriggerActivityIdle)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range defs {
		def := &defs[i]
		cfg, err := trigger.Decode(def)
		if err != nil {
			log.Printf("scanner: skip %s: %v", def.ID, err)
			continue
		}

		switch c := cfg.(type) {
		case trigger.ActivityReturnConfig:
			minAway := time.Duration(c.MinAwayHours) * time.Hour

			var candidates []models.UserProfile
			if err := s.DB.Where("last_seen_at >= ?", now.Add(-returnWindow)).
				Find(&candidates).Error; err != nil {
				log.Printf("scanner: candidates for %s: %v", def.ID, err)
				continue
			}
			for _, p := range candidates {
				if p.LastSeenAt == nil || p.PrevSeenAt == nil {
					continue
				}
				if p.LastSeenAt.Sub(*p.PrevSeenAt) < minAway {
					continue
				}
				s.deliver(def, p.ID, models.SourceTrigger, map[string]string{
					"away_since": p.PrevSeenAt.UTC().Format(time.RFC3339),
				})
			}

		case trigger.ActivityIdleConfig:
			idle := time.Duration(c.IdleHours) * time.Hour

			var candidates []string
			if err := s.DB.Model(&models.UserProfile{}).
				Where("last_seen_at IS NOT NULL AND last_seen_at <= ?", now.Add(-idle)).
				Pluck("id", &candidates).Error; err != nil {
				log.Printf("scanner: candidates for %s: %v", def.ID, err)
				continue
			}
			for _, userID := range candidates {
				s.deliver(def, userID, models.SourceTrigger, nil)
			}
		}
	}
	return nil
}

// scanScheduledTriggers fires cron-scheduled definitions that have come due
// since their last firing.
func (s *Scanner) scanScheduledTriggers() error {
	defs, err := s.activeDefs(models.TriggerScheduled)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}

	now := time.Now()
	var userIDs []string

	for i := range defs {
		def := &defs[i]
		cfg, err := trigger.Decode(def)
		if err != nil {
			log.Printf("scanner: skip %s: %v", def.ID, err)
			continue
		}
		sc := cfg.(trigger.ScheduleConfig)
		if !trigger.ScheduleDue(def, sc, now) {
			continue
		}

		if userIDs == nil {
			userIDs, err = s.allUserIDs()
			if err != nil {
				return err
			}
		}

		for _, userID := range userIDs {
			s.deliver(def, userID, models.SourceTrigger, map[string]string{"schedule": sc.Schedule})
		}

		// A capped definition may have retired itself mid-delivery; the
		// update is a harmless no-op then.
		if err := s.DB.Model(&models.TriggerDefinition{}).
			Where("id = ?", def.ID).
			Update("last_fired_at", now).Error; err != nil {
			log.Printf("scanner: mark fired %s: %v", def.ID, err)
		}
	}
	return nil
}

// sleepWithContext sleeps for duration d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
