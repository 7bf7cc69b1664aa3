// Package gdb drives the external debugger as a batch collaborator.
//
// Each query batch spawns one fresh gdb subprocess in batch mode against the
// same binary and target. The debugger's focus state (current thread, current
// frame) lives and dies with a single subprocess, so command ordering is
// significant within one batch and meaningless across batches: resolving one
// thread's lock can never leave stale focus state behind for the next.
package gdb

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/darless/c-deadlock-detector/internal/errors"
	"github.com/darless/c-deadlock-detector/internal/logging"
)

// Executable is the debugger binary looked up on PATH when no explicit
// path is configured.
const Executable = "gdb"

// Querier is the narrow query contract the analysis pipeline consumes.
// A batch returns the debugger's combined stdout for all commands.
type Querier interface {
	Query(ctx context.Context, commands ...string) (string, error)
}

// Session runs command batches against one binary/target pair.
type Session struct {
	gdbPath   string
	binary    string
	target    string
	extraArgs []string
	timeout   time.Duration
	logger    *logging.Logger
}

// LookupExecutable resolves the debugger executable, honoring an explicitly
// configured path. Failure here is the fatal collaborator-missing case: the
// caller must abort before any analysis.
func LookupExecutable(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", errors.NewSessionError("configured gdb path does not exist: "+configured, errors.ErrGDBNotFound)
		}
		return configured, nil
	}
	path, err := exec.LookPath(Executable)
	if err != nil {
		return "", errors.NewSessionError("could not find 'gdb' on the system", errors.ErrGDBNotFound)
	}
	return path, nil
}

// NewSession builds a session for the given binary and target (a PID or a
// core file path). The debugger executable is resolved immediately so a
// missing debugger fails before any query is attempted.
func NewSession(binary, target string, cfg config.GDBConfig, logger *logging.Logger) (*Session, error) {
	if binary == "" {
		return nil, errors.NewValidationError("binary path must not be empty").WithField("binary")
	}
	if target == "" {
		return nil, errors.NewValidationError("target must be a PID or core file").WithField("target")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	gdbPath, err := LookupExecutable(cfg.Path)
	if err != nil {
		return nil, err
	}

	return &Session{
		gdbPath:   gdbPath,
		binary:    binary,
		target:    target,
		extraArgs: cfg.ExtraArgs,
		timeout:   cfg.QueryTimeout(),
		logger:    logger.WithTarget(target).WithComponent("gdb"),
	}, nil
}

// Binary returns the binary under analysis.
func (s *Session) Binary() string { return s.binary }

// Target returns the PID or core file under analysis.
func (s *Session) Target() string { return s.target }

// Args returns the full argument list (excluding the executable itself)
// for a batch running the given commands. Exposed so callers can display
// or log the exact invocation.
func (s *Session) Args(commands ...string) []string {
	args := make([]string, 0, len(s.extraArgs)+len(commands)*2+3)
	args = append(args, s.binary, s.target)
	args = append(args, s.extraArgs...)
	args = append(args, "--batch")
	for _, command := range commands {
		args = append(args, "-ex", command)
	}
	return args
}

// Query runs one batch of debugger commands and returns the combined
// stdout. Stderr is captured for debug logging only; the debugger is
// chatty there even on success. Each batch runs under the configured
// timeout; a timeout surfaces with ErrTimeout in the chain so callers
// can treat it as a recoverable resolution failure.
func (s *Session) Query(ctx context.Context, commands ...string) (string, error) {
	if len(commands) == 0 {
		return "", errors.NewValidationError("query batch must contain at least one command")
	}

	qctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(qctx, s.gdbPath, s.Args(commands...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	s.logger.Debug("gdb batch finished",
		"commands", strings.Join(commands, "; "),
		"duration", time.Since(start).String(),
		"stdout_bytes", stdout.Len())
	if stderr.Len() > 0 {
		s.logger.Debug("gdb stderr", "output", stderr.String())
	}

	if err != nil {
		batch := strings.Join(commands, "; ")
		if qctx.Err() == context.DeadlineExceeded {
			return "", errors.NewSessionError("gdb query timed out", errors.ErrTimeout).
				WithBinary(s.binary).
				WithTarget(s.target).
				WithCommand(batch)
		}
		if qctx.Err() == context.Canceled {
			return "", errors.NewSessionError("gdb query canceled", errors.ErrCanceled).
				WithBinary(s.binary).
				WithTarget(s.target).
				WithCommand(batch)
		}
		return "", errors.NewSessionError("gdb query failed", err).
			WithBinary(s.binary).
			WithTarget(s.target).
			WithCommand(batch)
	}

	return stdout.String(), nil
}

// Version runs the debugger with --version and returns the first banner
// line. Used by the reachability check to verify the executable runs at
// all, independent of any target.
func Version(ctx context.Context, gdbPath string) (string, error) {
	cmd := exec.CommandContext(ctx, gdbPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", errors.NewSessionError("gdb did not run", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
