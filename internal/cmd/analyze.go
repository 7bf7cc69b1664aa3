package cmd

import (
	"github.com/darless/c-deadlock-detector/internal/analyzer"
	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/darless/c-deadlock-detector/internal/errors"
	"github.com/darless/c-deadlock-detector/internal/gdb"
	"github.com/darless/c-deadlock-detector/internal/logging"
	"github.com/darless/c-deadlock-detector/internal/report"
	"github.com/darless/c-deadlock-detector/internal/tui"
	"github.com/spf13/cobra"
)

var (
	withBacktraces bool
	threadFilters  []string
	jsonOut        bool
	yamlOut        bool
	noColor        bool
	interactive    bool
	gdbPath        string
	debugMode      bool
)

func init() {
	rootCmd.Flags().BoolVarP(&withBacktraces, "back-trace", "b", false, "include each reported thread's full backtrace")
	rootCmd.Flags().StringArrayVarP(&threadFilters, "thread", "t", nil, "only report the thread with this name or number (repeatable)")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "render the report as JSON")
	rootCmd.Flags().BoolVar(&yamlOut, "yaml", false, "render the report as YAML")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colorized output")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the snapshot in an interactive TUI")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	logger, closeLogger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLogger()

	binary, target := args[0], args[1]
	session, err := gdb.NewSession(binary, target, cfg.GDB, logger)
	if err != nil {
		return err
	}

	res, err := analyzer.New(session, analyzer.Options{}, logger).Analyze(cmd.Context())
	if err != nil {
		return err
	}

	rep := report.Build(res, report.Options{
		Binary:        binary,
		Target:        target,
		ThreadFilter:  threadFilters,
		WithBacktrace: withBacktraces || interactive,
	})

	if interactive {
		return tui.Run(rep, cfg.TUI)
	}

	out := cmd.OutOrStdout()
	color := !noColor && report.ColorEnabled(cfg.Report.Color, out)
	renderer, err := report.NewRenderer(format, color)
	if err != nil {
		return err
	}
	return renderer.Render(out, rep)
}

// applyFlagOverrides layers command-line switches over the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	if gdbPath != "" {
		cfg.GDB.Path = gdbPath
	}
	if debugMode {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
}

// resolveFormat picks the output format: explicit flags win over config.
func resolveFormat(cfg *config.Config) (string, error) {
	if jsonOut && yamlOut {
		return "", errors.NewValidationError("cannot use --json and --yaml together")
	}
	switch {
	case jsonOut:
		return "json", nil
	case yamlOut:
		return "yaml", nil
	}
	return cfg.Report.Format, nil
}

// newLogger builds the run logger. Logging is opt-in; the report itself
// goes to stdout, so a disabled logger is a no-op rather than a default
// stderr stream.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, func(), error) {
	if !cfg.Enabled {
		return logging.NopLogger(), func() {}, nil
	}
	logger, err := logging.NewLoggerWithRotation(cfg.File, cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Close() }, nil
}
