package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/db"
	"github.com/zulandar/herald/internal/models"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show delivery engine status",
		Long:  "Displays trigger, delivery, and inbox counts from the Herald database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "herald.yaml", "path to Herald config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	var activeTriggers, inactiveTriggers, deliveries, unread, users int64
	gormDB.Model(&models.TriggerDefinition{}).Where("status = ?", models.TriggerActive).Count(&activeTriggers)
	gormDB.Model(&models.TriggerDefinition{}).Where("status = ?", models.TriggerInactive).Count(&inactiveTriggers)
	gormDB.Model(&models.DeliveryRecord{}).Count(&deliveries)
	gormDB.Model(&models.Message{}).Where("status = ?", models.StatusUnread).Count(&unread)
	gormDB.Model(&models.UserProfile{}).Count(&users)

	fmt.Fprintf(out, "Herald status\n")
	fmt.Fprintf(out, "  Triggers:   %d active, %d inactive\n", activeTriggers, inactiveTriggers)
	fmt.Fprintf(out, "  Deliveries: %d recorded\n", deliveries)
	fmt.Fprintf(out, "  Inbox:      %d unread messages\n", unread)
	fmt.Fprintf(out, "  Users:      %d profiles\n", users)
	return nil
}
