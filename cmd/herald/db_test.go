package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDBCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	if !strings.Contains(out, "init") {
		t.Errorf("expected help to list 'init' subcommand, got: %s", out)
	}
	if !strings.Contains(out, "seed") {
		t.Errorf("expected help to list 'seed' subcommand, got: %s", out)
	}
}

func TestDBInitCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "init", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db init --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "--config") {
		t.Errorf("expected help to mention '--config' flag, got: %s", out)
	}
	if !strings.Contains(out, "herald.yaml") {
		t.Errorf("expected default config path 'herald.yaml', got: %s", out)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "init", "--config", "/nonexistent/herald.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBInitCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "herald.db")
	cfgPath := filepath.Join(dir, "herald.yaml")

	cfg := "database:\n" +
		"  driver: sqlite\n" +
		"  path: " + dbPath + "\n" +
		"templates:\n" +
		"  - key: welcome\n" +
		"    blocks:\n" +
		"      - speaker: Herald\n" +
		"        text: \"Hello {name}!\"\n"
	if err := writeTestFile(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "init", "--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Migrated") {
		t.Errorf("expected migration output, got: %s", out)
	}
	if !strings.Contains(out, "Seeded 1 templates") {
		t.Errorf("expected seed output, got: %s", out)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestDBSeedCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "herald.db")
	cfgPath := filepath.Join(dir, "herald.yaml")

	cfg := "database:\n" +
		"  driver: sqlite\n" +
		"  path: " + dbPath + "\n" +
		"templates:\n" +
		"  - key: welcome\n" +
		"    blocks:\n" +
		"      - speaker: Herald\n" +
		"        text: \"Hello {name}!\"\n"
	if err := writeTestFile(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}

	// init first so the tables exist, then seed again.
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"db", "init", "--config", cfgPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd = newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"db", "seed", "--config", cfgPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("db seed failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Seeded 1 templates") {
		t.Errorf("expected seed output, got: %s", buf.String())
	}
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
