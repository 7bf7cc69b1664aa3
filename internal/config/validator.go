package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "gdb.query_timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validation limits
const (
	// minQueryTimeoutSeconds is the minimum debugger query timeout
	minQueryTimeoutSeconds = 1
	// maxQueryTimeoutSeconds is the maximum debugger query timeout (10 minutes)
	maxQueryTimeoutSeconds = 600
	// maxBacktraceLinesLimit is the largest allowed backtrace pane length
	maxBacktraceLinesLimit = 100000
	// maxLogSizeMB is the maximum log file size before rotation
	maxLogSizeMB = 1000
	// maxLogBackups is the maximum number of rotated log files to keep
	maxLogBackups = 100
	// maxPathLength is the maximum length for path-valued fields
	maxPathLength = 4096
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the configuration for invalid values.
// Returns a list of validation errors, empty if the config is valid.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.GDB.validate()...)
	errs = append(errs, c.Report.validate()...)
	errs = append(errs, c.TUI.validate()...)
	errs = append(errs, c.Logging.validate()...)

	return errs
}

// validate checks debugger configuration values
func (c *GDBConfig) validate() []ValidationError {
	var errs []ValidationError

	// Path is optional; empty means look up "gdb" on PATH at startup.
	// When set it must name an existing file.
	if c.Path != "" {
		if pathErr := validatePath("gdb.path", c.Path); pathErr != nil {
			errs = append(errs, *pathErr)
		} else if _, err := os.Stat(c.Path); err != nil {
			errs = append(errs, ValidationError{
				Field:   "gdb.path",
				Value:   c.Path,
				Message: "gdb executable does not exist",
			})
		}
	}

	if c.QueryTimeoutSeconds < minQueryTimeoutSeconds || c.QueryTimeoutSeconds > maxQueryTimeoutSeconds {
		errs = append(errs, ValidationError{
			Field:   "gdb.query_timeout_seconds",
			Value:   c.QueryTimeoutSeconds,
			Message: fmt.Sprintf("must be between %d and %d", minQueryTimeoutSeconds, maxQueryTimeoutSeconds),
		})
	}

	for i, arg := range c.ExtraArgs {
		if arg == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gdb.extra_args[%d]", i),
				Value:   arg,
				Message: "must not be empty",
			})
			continue
		}
		if strings.ContainsRune(arg, '\x00') {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gdb.extra_args[%d]", i),
				Value:   arg,
				Message: "contains invalid null character",
			})
		}
	}

	return errs
}

// validate checks report configuration values
func (c *ReportConfig) validate() []ValidationError {
	var errs []ValidationError

	if c.Format != "" && !slices.Contains(ValidReportFormats(), c.Format) {
		errs = append(errs, ValidationError{
			Field:   "report.format",
			Value:   c.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidReportFormats(), ", ")),
		})
	}

	if c.Color != "" && !slices.Contains(ValidColorModes(), c.Color) {
		errs = append(errs, ValidationError{
			Field:   "report.color",
			Value:   c.Color,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidColorModes(), ", ")),
		})
	}

	return errs
}

// validate checks interactive browser configuration values
func (c *TUIConfig) validate() []ValidationError {
	var errs []ValidationError

	if c.MaxBacktraceLines < 0 {
		errs = append(errs, ValidationError{
			Field:   "tui.max_backtrace_lines",
			Value:   c.MaxBacktraceLines,
			Message: "must not be negative",
		})
	} else if c.MaxBacktraceLines > maxBacktraceLinesLimit {
		errs = append(errs, ValidationError{
			Field:   "tui.max_backtrace_lines",
			Value:   c.MaxBacktraceLines,
			Message: fmt.Sprintf("must not exceed %d", maxBacktraceLinesLimit),
		})
	}

	return errs
}

// validate checks logging configuration values
func (c *LoggingConfig) validate() []ValidationError {
	var errs []ValidationError

	if c.Level != "" && !slices.Contains(ValidLogLevels(), c.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// File is optional; empty means stderr. The file may not exist yet
	// (it is created on first write), so only the path shape is checked.
	if c.File != "" {
		if pathErr := validatePath("logging.file", c.File); pathErr != nil {
			errs = append(errs, *pathErr)
		}
	}

	if c.MaxSizeMB < 1 || c.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.MaxSizeMB,
			Message: fmt.Sprintf("must be between 1 and %d", maxLogSizeMB),
		})
	}

	if c.MaxBackups < 0 || c.MaxBackups > maxLogBackups {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.MaxBackups,
			Message: fmt.Sprintf("must be between 0 and %d", maxLogBackups),
		})
	}

	return errs
}

// validatePath checks shape problems common to all path-valued fields.
// Returns nil if the path is acceptable.
func validatePath(field, path string) *ValidationError {
	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		return &ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		}
	}
	// Most filesystems limit paths to around 4096 bytes
	if len(path) > maxPathLength {
		return &ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		}
	}
	return nil
}
