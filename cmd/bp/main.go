package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alfredjeanlab/buildproc/internal/config"
	"github.com/alfredjeanlab/buildproc/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	jsonOutput bool
	logLevel   string
	cacheDir   string

	cfg    *config.Config
	logger *slog.Logger
)

func defaultServer() string {
	if s := os.Getenv("BP_SERVER_URL"); s != "" {
		return s
	}
	return activeServerURL()
}

func defaultLogLevel() string {
	if s := os.Getenv("BP_LOG_LEVEL"); s != "" {
		return s
	}
	return "warn"
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}

var rootCmd = &cobra.Command{
	Use:           "bp <command>",
	Short:         "Process build telemetry from a Develocity server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}

		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("cache-dir") {
			cfg.CacheDir = cacheDir
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "Develocity server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel(), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", `filesystem cache directory ("off" disables it)`)

	rootCmd.AddGroup(
		&cobra.Group{ID: "builds", Title: "Builds:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Builds
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
