package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestTriggerDefinition_Fields(t *testing.T) {
	typ := reflect.TypeOf(TriggerDefinition{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "TriggerType", "index")
	assertGormTag(t, typ, "Config", "type:json")
	assertGormTag(t, typ, "Conditions", "type:json")
	assertGormTag(t, typ, "ConditionOperator", "default:AND")
	assertGormTag(t, typ, "Status", "default:active")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "TemplateKey", "not null")

	assertFieldType(t, typ, "MaxDeliveries", "*int")
	assertFieldType(t, typ, "LastFiredAt", "*time.Time")
	assertFieldType(t, typ, "Repeating", "bool")
}

func TestDeliveryRecord_CompositeKey(t *testing.T) {
	typ := reflect.TypeOf(DeliveryRecord{})

	assertGormTag(t, typ, "TriggerID", "primaryKey")
	assertGormTag(t, typ, "UserID", "primaryKey")
	assertFieldType(t, typ, "MessageID", "uint")
	assertFieldType(t, typ, "DeliveredAt", "time.Time")
}

func TestMessage_Fields(t *testing.T) {
	typ := reflect.TypeOf(Message{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "UserID", "not null")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "Content", "type:json")
	assertGormTag(t, typ, "Source", "default:system")
	assertGormTag(t, typ, "Status", "default:unread")
	assertGormTag(t, typ, "Status", "index")

	assertFieldType(t, typ, "ExpiresAt", "*time.Time")
}

func TestRateWindowEntry_CompositeKey(t *testing.T) {
	typ := reflect.TypeOf(RateWindowEntry{})

	assertGormTag(t, typ, "ClientID", "primaryKey")
	assertGormTag(t, typ, "Endpoint", "primaryKey")
	assertGormTag(t, typ, "UnixNanos", "primaryKey")
	assertFieldType(t, typ, "UnixNanos", "int64")
}

func TestUserRoleAndFact_CompositeKeys(t *testing.T) {
	roleTyp := reflect.TypeOf(UserRole{})
	assertGormTag(t, roleTyp, "UserID", "primaryKey")
	assertGormTag(t, roleTyp, "Role", "primaryKey")

	factTyp := reflect.TypeOf(UserFact{})
	assertGormTag(t, factTyp, "UserID", "primaryKey")
	assertGormTag(t, factTyp, "Key", "primaryKey")
}

func TestTriggerTypeConstants(t *testing.T) {
	types := []string{
		TriggerAttributeSet, TriggerAttributeEquals,
		TriggerRoleGranted, TriggerRoleRevoked,
		TriggerActivityReturn, TriggerActivityIdle,
		TriggerScheduled, TriggerDirectEvent,
	}
	seen := make(map[string]bool)
	for _, tt := range types {
		if tt == "" {
			t.Error("empty trigger type constant")
		}
		if seen[tt] {
			t.Errorf("duplicate trigger type constant %q", tt)
		}
		seen[tt] = true
	}
}
