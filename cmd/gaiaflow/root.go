package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaiaflow/gaiaflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gaiaflow",
	Short: "gaiaflow is a multi-step LLM research agent",
	Long: `gaiaflow answers research questions by planning, searching the web,
and verifying its own work, step by step, with every step persisted so
interrupted runs can be resumed.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json (overrides GAIAFLOW_LOG_FORMAT)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error (overrides GAIAFLOW_LOG_LEVEL)")
}

// parseConfig loads configuration honoring the persistent flag overrides.
// Validation is left to the caller so doctor can report problems instead
// of failing on them.
func parseConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Parse(envFile)
	if err != nil {
		return nil, err
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.LogFormat = f
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	return cfg, nil
}
