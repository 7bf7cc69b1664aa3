package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/darless/c-deadlock-detector/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify cdd configuration",
	Long: `View or modify cdd configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  cdd config set report.format json
  cdd config set tui.max_backtrace_lines 500
  cdd config set gdb.query_timeout_seconds 60

Valid keys:
  gdb.path                  - gdb executable (empty = look up on PATH)
  gdb.query_timeout_seconds - Per-query timeout in seconds
  report.format             - Default report format: text, json, yaml
  report.color              - Colorized text output: auto, always, never
  tui.max_backtrace_lines   - Max backtrace lines per thread in the browser
  tui.show_all_threads      - Show non-blocked threads too (true/false)
  logging.enabled           - Enable debug logging (true/false)
  logging.level             - Log level: debug, info, warn, error
  logging.file              - Log file path (empty = stderr)
  logging.max_size_mb       - Log file size before rotation
  logging.max_backups       - Rotated log files to keep`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/cdd/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "gdb:")
	if cfg.GDB.Path != "" {
		fmt.Fprintf(out, "  path: %s\n", cfg.GDB.Path)
	} else {
		fmt.Fprintf(out, "  path: (gdb on PATH)\n")
	}
	fmt.Fprintf(out, "  query_timeout_seconds: %d\n", cfg.GDB.QueryTimeoutSeconds)
	if len(cfg.GDB.ExtraArgs) > 0 {
		fmt.Fprintf(out, "  extra_args: %s\n", strings.Join(cfg.GDB.ExtraArgs, " "))
	}

	fmt.Fprintln(out, "report:")
	fmt.Fprintf(out, "  format: %s\n", cfg.Report.Format)
	fmt.Fprintf(out, "  color: %s\n", cfg.Report.Color)

	fmt.Fprintln(out, "tui:")
	fmt.Fprintf(out, "  max_backtrace_lines: %d\n", cfg.TUI.MaxBacktraceLines)
	fmt.Fprintf(out, "  show_all_threads: %v\n", cfg.TUI.ShowAllThreads)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Fprintf(out, "  file: %s\n", cfg.Logging.File)
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"gdb.path":                  "string",
		"gdb.query_timeout_seconds": "int",
		"report.format":             "string",
		"report.color":              "string",
		"tui.max_backtrace_lines":   "int",
		"tui.show_all_threads":      "bool",
		"logging.enabled":           "bool",
		"logging.level":             "string",
		"logging.file":              "string",
		"logging.max_size_mb":       "int",
		"logging.max_backups":       "int",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'cdd config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		switch key {
		case "report.format":
			if !config.IsValidReportFormat(value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidReportFormats(), ", "))
			}
		case "report.color":
			if !config.IsValidColorMode(value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidColorModes(), ", "))
			}
		case "logging.level":
			if !validLogLevel(value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(logging.ValidLevels(), ", "))
			}
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func validLogLevel(level string) bool {
	for _, valid := range logging.ValidLevels() {
		if level == valid {
			return true
		}
	}
	return false
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'cdd config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# cdd configuration

# Debugger settings
gdb:
  # Path to the gdb executable. Empty means look up "gdb" on PATH.
  path: ""
  # Per-query timeout in seconds
  query_timeout_seconds: 30
  # Extra arguments passed to every gdb invocation, e.g. ["-nx"]
  extra_args: []

# Report rendering
report:
  # Default output format: text, json, yaml
  format: text
  # Colorized text output: auto, always, never
  color: auto

# Interactive snapshot browser
tui:
  # Maximum backtrace lines shown per thread
  max_backtrace_lines: 2000
  # Include non-blocked threads in the thread table
  show_all_threads: false

# Debug logging (opt-in; the report itself goes to stdout)
logging:
  enabled: false
  # Log level: debug, info, warn, error
  level: info
  # Log file path. Empty means stderr.
  file: ""
  max_size_mb: 10
  max_backups: 3
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize cdd's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/cdd/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: CDD_* (e.g., CDD_REPORT_FORMAT)")

	return nil
}
