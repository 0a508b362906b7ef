package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/herald/internal/broadcast"
	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/db"
	"github.com/zulandar/herald/internal/relay"
	"github.com/zulandar/herald/internal/scanner"
	"github.com/zulandar/herald/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the delivery engine and API server",
		Long:  "Starts the trigger scanner and the HTTP API (inbox, push stream, direct events) as one process. Shuts down cleanly on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "herald.yaml", "path to Herald config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedTemplates(gormDB, cfg.Templates); err != nil {
		return err
	}

	broadcaster := broadcast.New(cfg.Broadcast.BufferCapacity)

	rly, err := relay.New(cfg.Relay)
	if err != nil {
		return err
	}

	sc, err := scanner.New(gormDB, broadcaster, rly, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	go sc.Run(ctx, cfg.PollInterval())

	err = server.Start(ctx, server.StartOpts{
		DB:          gormDB,
		Config:      cfg,
		Broadcaster: broadcaster,
		Scanner:     sc,
		Out:         out,
	})

	// Force-close every push connection before exit so clients see EOF
	// rather than a stalled stream.
	broadcaster.CloseAll()
	return err
}
