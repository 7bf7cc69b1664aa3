package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete detector configuration
type Config struct {
	GDB     GDBConfig     `mapstructure:"gdb"`
	Report  ReportConfig  `mapstructure:"report"`
	TUI     TUIConfig     `mapstructure:"tui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// GDBConfig controls how the debugger collaborator is invoked
type GDBConfig struct {
	// Path is the gdb executable to use. Empty means look it up on PATH.
	Path string `mapstructure:"path"`
	// QueryTimeoutSeconds bounds each debugger query batch (default: 30)
	QueryTimeoutSeconds int `mapstructure:"query_timeout_seconds"`
	// ExtraArgs are additional arguments passed to every gdb invocation,
	// inserted before --batch. Example: ["-nx"] to skip .gdbinit.
	ExtraArgs []string `mapstructure:"extra_args"`
}

// ReportConfig controls report rendering
type ReportConfig struct {
	// Format is the default output format: "text", "json", or "yaml" (default: "text")
	Format string `mapstructure:"format"`
	// Color controls styled text output: "auto", "always", or "never" (default: "auto").
	// "auto" disables styling when stdout is not a terminal.
	Color string `mapstructure:"color"`
}

// TUIConfig controls the interactive snapshot browser
type TUIConfig struct {
	// MaxBacktraceLines limits how many frame lines the backtrace pane shows
	// per thread (default: 2000)
	MaxBacktraceLines int `mapstructure:"max_backtrace_lines"`
	// ShowAllThreads includes non-blocked threads in the thread table (default: false)
	ShowAllThreads bool `mapstructure:"show_all_threads"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path. Empty means log to stderr.
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		GDB: GDBConfig{
			Path:                "", // Empty means look up "gdb" on PATH
			QueryTimeoutSeconds: 30,
			ExtraArgs:           []string{},
		},
		Report: ReportConfig{
			Format: "text",
			Color:  "auto",
		},
		TUI: TUIConfig{
			MaxBacktraceLines: 2000,
			ShowAllThreads:    false,
		},
		Logging: LoggingConfig{
			Enabled:    false, // Opt-in; the report itself goes to stdout
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// QueryTimeout returns the per-batch debugger timeout as a time.Duration
func (c *GDBConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// GDB defaults
	viper.SetDefault("gdb.path", defaults.GDB.Path)
	viper.SetDefault("gdb.query_timeout_seconds", defaults.GDB.QueryTimeoutSeconds)
	viper.SetDefault("gdb.extra_args", defaults.GDB.ExtraArgs)

	// Report defaults
	viper.SetDefault("report.format", defaults.Report.Format)
	viper.SetDefault("report.color", defaults.Report.Color)

	// TUI defaults
	viper.SetDefault("tui.max_backtrace_lines", defaults.TUI.MaxBacktraceLines)
	viper.SetDefault("tui.show_all_threads", defaults.TUI.ShowAllThreads)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cdd")
	}
	// Fall back to ~/.config/cdd
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cdd"
	}
	return filepath.Join(home, ".config", "cdd")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidReportFormats returns the list of valid report format values
func ValidReportFormats() []string {
	return []string{"text", "json", "yaml"}
}

// IsValidReportFormat checks if the given format is valid
func IsValidReportFormat(format string) bool {
	for _, valid := range ValidReportFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// ValidColorModes returns the list of valid color mode values
func ValidColorModes() []string {
	return []string{"auto", "always", "never"}
}

// IsValidColorMode checks if the given mode is valid
func IsValidColorMode(mode string) bool {
	for _, valid := range ValidColorModes() {
		if mode == valid {
			return true
		}
	}
	return false
}
