// Package cmd holds the irrify command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "irrify",
	Short: "AgroSense Hub smart-farm backend",
	Long: "Irrify serves the AgroSense Hub API, ingests device telemetry over MQTT " +
		"and runs the irrigation scheduler.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		setupLogging(config.C.LogLevel, config.C.LogFormat)
	},
	// serve is the default command.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// connect opens and migrates the database.
func connect() error {
	conn, err := db.Connect()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
