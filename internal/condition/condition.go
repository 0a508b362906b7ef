// Package condition evaluates trigger condition lists against one user's
// attributes.
package condition

import (
	"log"
	"strconv"

	"github.com/zulandar/herald/internal/models"
	"github.com/zulandar/herald/internal/profile"
	"gorm.io/gorm"
)

// Operators combining a condition list.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Evaluate returns whether the user satisfies the condition list under the
// given operator. An empty list matches everyone. Evaluation short-circuits:
// AND stops at the first false, OR at the first true. Unknown condition
// types and failed lookups evaluate to false — under-triggering is preferred
// over false or duplicate triggering.
func Evaluate(db *gorm.DB, conds []models.Condition, operator, userID string) bool {
	if len(conds) == 0 {
		return true
	}

	for _, cond := range conds {
		matched := evaluateOne(db, cond, userID)
		if operator == OperatorOr {
			if matched {
				return true
			}
		} else if !matched {
			return false
		}
	}

	// AND: every condition held. OR: none did.
	return operator != OperatorOr
}

// evaluateOne resolves a single condition through one profile lookup.
func evaluateOne(db *gorm.DB, cond models.Condition, userID string) bool {
	switch cond.Type {
	case models.CondAttributeExists:
		_, ok, err := profile.Fact(db, userID, cond.Key)
		if err != nil {
			log.Printf("condition: fact lookup failed for %s/%s: %v", userID, cond.Key, err)
			return false
		}
		return ok

	case models.CondAttributeEquals:
		value, ok, err := profile.Fact(db, userID, cond.Key)
		if err != nil {
			log.Printf("condition: fact lookup failed for %s/%s: %v", userID, cond.Key, err)
			return false
		}
		return ok && value == cond.Value

	case models.CondRolePresent:
		has, err := profile.HasRole(db, userID, cond.Key)
		if err != nil {
			log.Printf("condition: role lookup failed for %s/%s: %v", userID, cond.Key, err)
			return false
		}
		return has

	case models.CondQuestCompleted:
		_, ok, err := profile.Fact(db, userID, "quest:"+cond.Key)
		if err != nil {
			log.Printf("condition: quest lookup failed for %s/%s: %v", userID, cond.Key, err)
			return false
		}
		return ok

	case models.CondNumericThreshold:
		if !profile.StatAllowed(cond.Key) {
			log.Printf("condition: stat %q is not permitted", cond.Key)
			return false
		}
		actual, err := profile.Stat(db, userID, cond.Key)
		if err != nil {
			log.Printf("condition: stat lookup failed for %s/%s: %v", userID, cond.Key, err)
			return false
		}
		threshold, err := strconv.Atoi(cond.Value)
		if err != nil {
			log.Printf("condition: non-numeric threshold %q for stat %s", cond.Value, cond.Key)
			return false
		}
		return compare(actual, cond.Operator, threshold)

	default:
		log.Printf("condition: unknown condition type %q", cond.Type)
		return false
	}
}

func compare(actual int, operator string, threshold int) bool {
	switch operator {
	case ">=":
		return actual >= threshold
	case ">":
		return actual > threshold
	case "<=":
		return actual <= threshold
	case "<":
		return actual < threshold
	case "==":
		return actual == threshold
	default:
		log.Printf("condition: unknown comparison operator %q", operator)
		return false
	}
}
