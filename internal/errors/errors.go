// Package errors provides centralized error definitions and error handling
// utilities for the deadlock detector. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: errors talking to the gdb collaborator
//   - ParseError: errors while parsing debugger output
//   - ResolveError: errors while resolving lock ownership
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewSessionError("query failed", errors.ErrTargetUnreachable)
//
//	// Semantic error
//	err := errors.NewNotFoundError("thread", "42")
//
//	// With context wrapping
//	err := errors.NewResolveError("no owner field", errors.ErrOwnerNotFound).WithLWP(8976)
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrTargetUnreachable) { ... }
//
//	// Check for error types
//	var parseErr *errors.ParseError
//	if errors.As(err, &parseErr) { ... }
//
//	// Use classification helpers
//	if errors.IsFatal(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Fatal: the analysis cannot continue (debugger missing or target unreachable)
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
//
// Only collaborator unavailability is fatal. Parse and resolution failures
// degrade the report instead of aborting it.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that abort the analysis.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Debugger session sentinel errors
var (
	// ErrGDBNotFound indicates that no gdb executable could be located.
	ErrGDBNotFound = New("gdb executable not found")
	// ErrTargetUnreachable indicates that the target process or core could not be inspected.
	ErrTargetUnreachable = New("target unreachable")
	// ErrQueryFailed indicates that a debugger query returned an error.
	ErrQueryFailed = New("debugger query failed")
	// ErrEmptyOutput indicates that a debugger query produced no usable output.
	ErrEmptyOutput = New("debugger returned no output")
)

// Parser sentinel errors
var (
	// ErrMalformedHeader indicates a thread header line that did not match the grammar.
	ErrMalformedHeader = New("malformed thread header")
	// ErrMalformedFrame indicates a frame line that did not match the grammar.
	ErrMalformedFrame = New("malformed frame")
	// ErrUnknownLWP indicates a thread listing entry with no matching thread.
	ErrUnknownLWP = New("unknown lwp")
)

// Resolver sentinel errors
var (
	// ErrAnchorNotFound indicates that no lock address could be anchored in a register dump.
	ErrAnchorNotFound = New("lock address anchor not found")
	// ErrOwnerNotFound indicates that no owner could be extracted for a lock.
	ErrOwnerNotFound = New("lock owner not found")
	// ErrUnsupportedPrimitive indicates a blocking primitive whose internals cannot be read.
	ErrUnsupportedPrimitive = New("unsupported synchronization primitive")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DetectorError is the base interface for all detector errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type DetectorError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors talking to the gdb collaborator.
//
// Example:
//
//	err := errors.NewSessionError("query failed", errors.ErrQueryFailed)
//	err = err.WithTarget("12345").WithCommand("info reg")
//	fmt.Println(err) // "gdb error [target=12345, command=info reg]: query failed: debugger query failed"
type SessionError struct {
	baseError
	Binary  string
	Target  string
	Command string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithBinary adds the inspected binary path to the error context.
func (e *SessionError) WithBinary(binary string) *SessionError {
	e.Binary = binary
	return e
}

// WithTarget adds the pid or core path to the error context.
func (e *SessionError) WithTarget(target string) *SessionError {
	e.Target = target
	return e
}

// WithCommand adds the failing debugger command to the error context.
func (e *SessionError) WithCommand(command string) *SessionError {
	e.Command = command
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SessionError) WithRetryable(r bool) *SessionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.Binary != "" {
		parts = append(parts, fmt.Sprintf("binary=%s", e.Binary))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", e.Target))
	}
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}

	prefix := "gdb error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("gdb error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ParseError represents errors while parsing debugger output. Parse errors
// never abort an analysis; the offending line is skipped and the error is
// surfaced as a diagnostic.
//
// Example:
//
//	err := errors.NewParseError("frame did not match grammar", errors.ErrMalformedFrame)
//	err = err.WithSection("backtrace").WithLine("#2 garbage")
type ParseError struct {
	baseError
	Section string
	Line    string
	LineNum int
}

// NewParseError creates a new ParseError.
func NewParseError(message string, cause error) *ParseError {
	return &ParseError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		LineNum: -1, // -1 indicates not set
	}
}

// WithSection adds the output section being parsed to the error context.
func (e *ParseError) WithSection(section string) *ParseError {
	e.Section = section
	return e
}

// WithLine adds the offending line to the error context.
func (e *ParseError) WithLine(line string) *ParseError {
	e.Line = line
	return e
}

// WithLineNum adds the offending line number to the error context.
func (e *ParseError) WithLineNum(n int) *ParseError {
	e.LineNum = n
	return e
}

// WithSeverity sets the error severity.
func (e *ParseError) WithSeverity(s Severity) *ParseError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	var parts []string
	if e.Section != "" {
		parts = append(parts, fmt.Sprintf("section=%s", e.Section))
	}
	if e.LineNum >= 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.LineNum))
	}

	prefix := "parse error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("parse error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Line != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Line)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ParseError) Is(target error) bool {
	if _, ok := target.(*ParseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ResolveError represents errors while resolving which thread owns a lock.
// Like parse errors these are non-fatal; the waiting thread is reported
// with an unknown owner.
//
// Example:
//
//	err := errors.NewResolveError("no anchor in register dump", errors.ErrAnchorNotFound)
//	err = err.WithThread(3).WithLWP(8976)
type ResolveError struct {
	baseError
	ThreadIndex int
	LWP         int
	Address     string
}

// NewResolveError creates a new ResolveError.
func NewResolveError(message string, cause error) *ResolveError {
	return &ResolveError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ThreadIndex: -1, // -1 indicates not set
	}
}

// WithThread adds the waiting thread's display index to the error context.
func (e *ResolveError) WithThread(index int) *ResolveError {
	e.ThreadIndex = index
	return e
}

// WithLWP adds the waiting thread's lwp to the error context.
func (e *ResolveError) WithLWP(lwp int) *ResolveError {
	e.LWP = lwp
	return e
}

// WithAddress adds the probed lock address to the error context.
func (e *ResolveError) WithAddress(addr string) *ResolveError {
	e.Address = addr
	return e
}

// WithSeverity sets the error severity.
func (e *ResolveError) WithSeverity(s Severity) *ResolveError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ResolveError) Error() string {
	var parts []string
	if e.ThreadIndex >= 0 {
		parts = append(parts, fmt.Sprintf("thread=%d", e.ThreadIndex))
	}
	if e.LWP != 0 {
		parts = append(parts, fmt.Sprintf("lwp=%d", e.LWP))
	}
	if e.Address != "" {
		parts = append(parts, fmt.Sprintf("addr=%s", e.Address))
	}

	prefix := "resolve error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("resolve error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ResolveError) Is(target error) bool {
	if _, ok := target.(*ResolveError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("thread", "42")
//	fmt.Println(err) // "thread '42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("pid must be numeric or a core path")
//	err = err.WithField("target").WithValue("bogus")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for register dump", 10*time.Second)
//	fmt.Println(err) // "timeout error: waiting for register dump (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true if the error means the analysis cannot continue.
// Only collaborator unavailability is fatal: a missing gdb executable, an
// unreachable target, or any error marked SeverityCritical. Everything
// else degrades the report.
//
// Example:
//
//	if errors.IsFatal(err) {
//	    return err
//	}
//	diagnostics = append(diagnostics, err)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if Is(err, ErrGDBNotFound) || Is(err, ErrTargetUnreachable) {
		return true
	}

	var detectorErr DetectorError
	if As(err, &detectorErr) {
		return detectorErr.Severity() >= SeverityCritical
	}

	return false
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing DetectorError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements DetectorError
	var detectorErr DetectorError
	if As(err, &detectorErr) {
		return detectorErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing DetectorError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements DetectorError
	var detectorErr DetectorError
	if As(err, &detectorErr) {
		return detectorErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DetectorError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    return err
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements DetectorError
	var detectorErr DetectorError
	if As(err, &detectorErr) {
		return detectorErr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (SessionError, ParseError, or ResolveError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var sessionErr *SessionError
	var parseErr *ParseError
	var resolveErr *ResolveError

	return As(err, &sessionErr) || As(err, &parseErr) || As(err, &resolveErr)
}

// IsSemanticError returns true if the error is a semantic error
// (NotFoundError, ValidationError, or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &notFound) || As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the DetectorError interface.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to build snapshot")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to resolve thread %d", index)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
