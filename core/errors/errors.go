// Package errors provides standardized error types and helpers for texforge.
//
// Every typed error unwraps to one of the sentinel errors below, so callers
// test the kind with errors.Is and pull details out with errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common cases
var (
	// ErrShape indicates a row or matrix whose arity does not match its container
	ErrShape = errors.New("shape mismatch")
	// ErrRange indicates a column range outside the table
	ErrRange = errors.New("out of range")
	// ErrConflict indicates a package redeclared with different options
	ErrConflict = errors.New("conflicting declaration")
	// ErrToolchainNotFound indicates the typesetting executable is missing
	ErrToolchainNotFound = errors.New("toolchain not found")
	// ErrCompile indicates the typesetting run failed
	ErrCompile = errors.New("compile failed")
	// ErrTimeout indicates the typesetting run exceeded its deadline
	ErrTimeout = errors.New("compile timed out")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrCorrupt indicates stored content that no longer matches its digest
	ErrCorrupt = errors.New("content does not match digest")
)

// ShapeError reports a sequence whose length differs from what its
// container requires.
type ShapeError struct {
	What     string // What was being shaped (e.g., "table row", "matrix row 2")
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %d values, got %d", e.What, e.Expected, e.Actual)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// RangeError reports a 1-based inclusive column span [Start, End] that does
// not fit in [Min, Max].
type RangeError struct {
	Start int
	End   int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	if e.Start > e.End {
		return fmt.Sprintf("invalid column range %d-%d: start is after end", e.Start, e.End)
	}
	return fmt.Sprintf("column range %d-%d outside %d-%d", e.Start, e.End, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error {
	return ErrRange
}

// ConflictError reports a package declared twice with different options.
type ConflictError struct {
	Package   string
	Existing  []string
	Requested []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("package %s already declared with options [%s], cannot redeclare with [%s]",
		e.Package, strings.Join(e.Existing, ","), strings.Join(e.Requested, ","))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ToolchainNotFoundError reports that the typesetting executable could not
// be resolved.
type ToolchainNotFoundError struct {
	Executable string
	Err        error // Underlying lookup error, if any
}

func (e *ToolchainNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("toolchain %q not found: %v", e.Executable, e.Err)
	}
	return fmt.Sprintf("toolchain %q not found", e.Executable)
}

func (e *ToolchainNotFoundError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrToolchainNotFound, e.Err}
	}
	return []error{ErrToolchainNotFound}
}

// CompileError reports a typesetting run that exited non-zero or produced
// no output artifact.
type CompileError struct {
	Source      string   // Source file that was compiled
	ExitCode    int      // Exit status; 0 when the artifact was missing
	Output      string   // Combined stdout/stderr of the run
	Diagnostics []string // Error lines extracted from Output
	Reason      string   // Short description when ExitCode is 0
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	sb.WriteString("compile ")
	sb.WriteString(e.Source)
	if e.ExitCode != 0 {
		fmt.Fprintf(&sb, ": exit status %d", e.ExitCode)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if len(e.Diagnostics) > 0 {
		sb.WriteString(": ")
		sb.WriteString(e.Diagnostics[0])
	}
	return sb.String()
}

func (e *CompileError) Unwrap() error {
	return ErrCompile
}

// TimeoutError reports a typesetting run that was cancelled at its deadline.
type TimeoutError struct {
	Source  string
	Timeout time.Duration
	Output  string // Output captured before cancellation
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("compile %s: exceeded timeout of %s", e.Source, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "column spec", "YAML outline")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewShape creates a ShapeError
func NewShape(what string, expected, actual int) *ShapeError {
	return &ShapeError{
		What:     what,
		Expected: expected,
		Actual:   actual,
	}
}

// NewRange creates a RangeError
func NewRange(start, end, min, max int) *RangeError {
	return &RangeError{
		Start: start,
		End:   end,
		Min:   min,
		Max:   max,
	}
}

// NewConflict creates a ConflictError
func NewConflict(pkg string, existing, requested []string) *ConflictError {
	return &ConflictError{
		Package:   pkg,
		Existing:  existing,
		Requested: requested,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
