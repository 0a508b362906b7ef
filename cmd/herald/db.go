package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Herald database",
		Long:  "Creates the database if needed, migrates all tables, and seeds dialogue templates from config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "herald.yaml", "path to Herald config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// MySQL needs the database created first; sqlite creates its file on
	// open.
	if cfg.Database.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Database)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedTemplates(gormDB, cfg.Templates); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d templates\n", len(cfg.Templates))

	fmt.Fprintln(out, "\nHerald database initialized successfully.")
	return nil
}

func newDBSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Re-seed dialogue templates from config",
		Long:  "Upserts the dialogue templates listed in config without touching other tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "herald.yaml", "path to Herald config file")
	return cmd
}

func runDBSeed(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	if err := db.SeedTemplates(gormDB, cfg.Templates); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d templates\n", len(cfg.Templates))
	return nil
}
