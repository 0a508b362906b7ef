package inbox

import (
	"testing"
	"time"

	"github.com/zulandar/herald/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func blocks(text string) []models.ContentBlock {
	return []models.ContentBlock{{Speaker: "Herald", Text: text}}
}

func TestCreate_Validation(t *testing.T) {
	if _, err := Create(nil, "", blocks("hi"), CreateOpts{}); err == nil {
		t.Error("expected error for missing userID")
	}
	if _, err := Create(nil, "u1", nil, CreateOpts{}); err == nil {
		t.Error("expected error for empty blocks")
	}
}

func TestCreate_Defaults(t *testing.T) {
	db := openTestDB(t)

	msg, err := Create(db, "u1", blocks("hello"), CreateOpts{TemplateKey: "welcome"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if msg.ID == 0 {
		t.Error("expected message ID to be set")
	}
	if msg.Source != models.SourceSystem {
		t.Errorf("Source = %q, want system", msg.Source)
	}
	if msg.Status != models.StatusUnread {
		t.Errorf("Status = %q, want unread", msg.Status)
	}

	got, err := Blocks(msg)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("Blocks = %+v", got)
	}
}

func TestListForUser(t *testing.T) {
	db := openTestDB(t)

	first, _ := Create(db, "u1", blocks("first"), CreateOpts{})
	Create(db, "u1", blocks("second"), CreateOpts{})
	Create(db, "u2", blocks("other"), CreateOpts{})

	msgs, err := ListForUser(db, "u1", false)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	if err := MarkRead(db, first.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, err := ListForUser(db, "u1", true)
	if err != nil {
		t.Fatalf("ListForUser unread: %v", err)
	}
	if len(unread) != 1 {
		t.Errorf("unread = %d, want 1", len(unread))
	}
}

func TestStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	msg, _ := Create(db, "u1", blocks("x"), CreateOpts{})

	if err := MarkRead(db, msg.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	var got models.Message
	db.First(&got, msg.ID)
	if got.Status != models.StatusRead {
		t.Errorf("Status = %q, want read", got.Status)
	}

	if err := Dismiss(db, msg.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	db.First(&got, msg.ID)
	if got.Status != models.StatusDismissed {
		t.Errorf("Status = %q, want dismissed", got.Status)
	}

	if err := MarkRead(db, 9999); err == nil {
		t.Error("expected error for unknown message ID")
	}
}

func TestSweepExpired(t *testing.T) {
	db := openTestDB(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	Create(db, "u1", blocks("expired"), CreateOpts{ExpiresAt: &past})
	Create(db, "u1", blocks("fresh"), CreateOpts{ExpiresAt: &future})
	Create(db, "u1", blocks("forever"), CreateOpts{})

	swept, err := SweepExpired(db)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	unread, _ := ListForUser(db, "u1", true)
	if len(unread) != 2 {
		t.Errorf("unread after sweep = %d, want 2", len(unread))
	}

	// Second sweep finds nothing.
	swept, err = SweepExpired(db)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 0 {
		t.Errorf("second sweep = %d, want 0", swept)
	}
}
