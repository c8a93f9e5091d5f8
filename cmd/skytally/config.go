package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage skytally configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SKYTALLY_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is created as '.skytally.yaml' in the current directory unless a
different path is given with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source:
  - Environment variables
  - .env file
  - Configuration file
  - Default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Endpoint URLs
  - Value ranges for retry, pagination and filters
  - Log file path accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const configHeader = `# skytally configuration file
#
# Every option can also be set with an environment variable prefixed with
# SKYTALLY_, for example SKYTALLY_LIMIT=500 or SKYTALLY_LOG_LEVEL=debug.
# Durations use Go syntax: 500ms, 30s, 1m.

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".skytally.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return errs.Validation("configuration file already exists: %s (remove it first to overwrite)", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read back configuration: %w", err)
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintHint("Run 'skytally config validate' after editing it")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return &errs.Error{Kind: errs.KindValidation, Message: "invalid configuration", Err: err}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprint(os.Stdout, string(data))

	if configFile != "" {
		ui.PrintInfo("Configuration file", configFile)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(defaults and environment)"
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return &errs.Error{Kind: errs.KindValidation, Message: "configuration validation failed", Err: err}
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return errs.Validation("cannot create log directory: %v", err)
		}
	}

	var warnings []string
	if cfg.RateLimit.RequestsPerMinute == 0 {
		warnings = append(warnings, "client-side pacing is disabled (requests_per_minute: 0)")
	}
	if cfg.Pagination.Limit > cfg.Pagination.PageSize*cfg.Pagination.MaxPages {
		warnings = append(warnings, fmt.Sprintf("limit %d cannot be reached with %d pages of %d",
			cfg.Pagination.Limit, cfg.Pagination.MaxPages, cfg.Pagination.PageSize))
	}
	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Endpoints", fmt.Sprintf("%v", cfg.API.Endpoints))
	ui.PrintInfo("Limit", fmt.Sprintf("%d records, %d per page, %d pages max",
		cfg.Pagination.Limit, cfg.Pagination.PageSize, cfg.Pagination.MaxPages))
	ui.PrintInfo("Retry", fmt.Sprintf("%d attempts, backoff %s to %s",
		cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay))
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
