package db

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gdb
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "no password",
			cfg:  config.DatabaseConfig{User: "root", Host: "127.0.0.1", Port: 3306, Database: "herald"},
			want: "root@tcp(127.0.0.1:3306)/herald?parseTime=true",
		},
		{
			name: "with password",
			cfg:  config.DatabaseConfig{User: "herald", Password: "s3cret", Host: "db.internal", Port: 3307, Database: "herald_prod"},
			want: "herald:s3cret@tcp(db.internal:3307)/herald_prod?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{User: "root", Host: "localhost", Port: 3306, Database: "test"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestConnect_SQLiteMemory(t *testing.T) {
	gdb, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if gdb == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestAutoMigrate(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	for _, model := range AllModels() {
		if !gdb.Migrator().HasTable(model) {
			t.Errorf("missing table for %T", model)
		}
	}
}

func TestSeedTemplates(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	templates := []config.TemplateConfig{
		{
			Key: "welcome",
			Blocks: []config.BlockConfig{
				{Speaker: "Herald", Text: "Hello {name}!", Buttons: []config.ButtonConfig{{Label: "Open", Action: "open-inbox"}}},
			},
		},
	}

	if err := SeedTemplates(gdb, templates); err != nil {
		t.Fatalf("SeedTemplates: %v", err)
	}

	var tpl models.DialogueTemplate
	if err := gdb.Where("key = ?", "welcome").First(&tpl).Error; err != nil {
		t.Fatalf("load template: %v", err)
	}

	var blocks []models.ContentBlock
	if err := json.Unmarshal([]byte(tpl.Blocks), &blocks); err != nil {
		t.Fatalf("unmarshal blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text != "Hello {name}!" {
		t.Errorf("blocks = %+v, want one hello block", blocks)
	}
	if len(blocks[0].Buttons) != 1 || blocks[0].Buttons[0].Action != "open-inbox" {
		t.Errorf("buttons = %+v, want one open-inbox button", blocks[0].Buttons)
	}
}

func TestSeedTemplates_UpsertOverwrites(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	first := []config.TemplateConfig{{Key: "promo", Blocks: []config.BlockConfig{{Text: "v1"}}}}
	second := []config.TemplateConfig{{Key: "promo", Blocks: []config.BlockConfig{{Text: "v2"}}}}

	if err := SeedTemplates(gdb, first); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedTemplates(gdb, second); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	gdb.Model(&models.DialogueTemplate{}).Count(&count)
	if count != 1 {
		t.Errorf("template count = %d, want 1", count)
	}

	var tpl models.DialogueTemplate
	if err := gdb.Where("key = ?", "promo").First(&tpl).Error; err != nil {
		t.Fatalf("load template: %v", err)
	}
	if !strings.Contains(tpl.Blocks, "v2") {
		t.Errorf("Blocks = %q, want updated v2 content", tpl.Blocks)
	}
}
