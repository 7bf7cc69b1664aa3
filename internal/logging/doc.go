// Package logging provides structured logging for deadlock analyses.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. It is
// designed to make a failed or surprising analysis reconstructible after
// the fact: every debugger query, parse decision, and resolution step can
// be logged with enough context to replay what happened.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (target, thread index, component)
//   - Log rotation with configurable size limits
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger writing to a file:
//
//	logger, err := logging.NewLogger("/path/to/cdd.log", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("register dump", "lines", 40)
//	logger.Info("snapshot parsed", "threads", 12)
//	logger.Warn("skipping invalid frame", "line", raw)
//	logger.Error("owner probe failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add the inspected target
//	targetLogger := logger.WithTarget("12345")
//
//	// Add the component
//	parserLogger := targetLogger.WithComponent("parser")
//
//	// Add the thread under inspection
//	threadLogger := parserLogger.WithThread(3)
//
//	// All logs from threadLogger will include target, component, and thread
//	threadLogger.Debug("thread blocked", "func", "pthread_mutex_lock")
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"thread blocked","target":"12345","component":"parser","thread":3,"func":"pthread_mutex_lock"}
//
// # Log Rotation
//
// To prevent unbounded growth across repeated analyses:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10, // Rotate when file exceeds 10MB
//	    MaxBackups: 3,  // Keep 3 backup files
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/cdd.log", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: cdd.log.1, cdd.log.2, etc., where .1 is the
// most recent backup.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via the config file:
//
//	logging:
//	  enabled: true
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
package logging
