// Package errors provides structured error types for stevedore.
//
// Every failure the resolution core can produce is one of a closed set of
// kinds, each carrying enough context (package name, requirement text,
// requester chain, cycle path) to render a human-readable message without
// string parsing.
//
// # Error Codes
//
// Codes are machine-readable and stable:
//   - INVALID_REQUIREMENT: malformed version requirement text
//   - PACKAGE_NOT_FOUND: no registry record satisfies a requirement
//   - VERSION_CONFLICT: incompatible requirements for one package name
//   - CIRCULAR_DEPENDENCY: the resolved graph contains a cycle
//   - CORRUPT_LOCKFILE: a lockfile failed schema or field validation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidManifest, "missing package name in %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidManifest) {
//	    // Handle manifest error
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the resolution core and its collaborators.
const (
	ErrCodeInvalidRequirement Code = "INVALID_REQUIREMENT"
	ErrCodePackageNotFound    Code = "PACKAGE_NOT_FOUND"
	ErrCodeVersionConflict    Code = "VERSION_CONFLICT"
	ErrCodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	ErrCodeCorruptLockfile    Code = "CORRUPT_LOCKFILE"

	// Collaborator-surface errors (manifest scaffolding, installation).
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInternal        Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by the typed errors below so that Is and GetCode
// can classify them without a type switch per kind.
type coder interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for a coded error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code() == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// InvalidRequirementError reports version requirement text that failed to parse.
type InvalidRequirementError struct {
	Text   string // The offending requirement text
	Reason string // What made it unparseable
}

// Error implements the error interface.
func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("invalid requirement %q: %s", e.Text, e.Reason)
}

// Code returns the error code for this error type.
func (e *InvalidRequirementError) Code() Code { return ErrCodeInvalidRequirement }

// PackageNotFoundError reports that no registry record satisfies a requirement.
type PackageNotFoundError struct {
	Name        string // Requested package name
	Requirement string // Requirement text, empty if any version would do
}

// Error implements the error interface.
func (e *PackageNotFoundError) Error() string {
	if e.Requirement == "" {
		return fmt.Sprintf("package not found: %s", e.Name)
	}
	return fmt.Sprintf("no version of %s satisfies %q", e.Name, e.Requirement)
}

// Code returns the error code for this error type.
func (e *PackageNotFoundError) Code() Code { return ErrCodePackageNotFound }

// VersionConflictError reports two incompatible requirements for one package.
// The first discovered version for a name is binding; a later requirement
// that the chosen version does not satisfy aborts resolution.
type VersionConflictError struct {
	Name        string   // Conflicted package name
	Requirement string   // The requirement that could not be satisfied
	Chosen      string   // The already-bound version
	Parents     []string // Requesters, in discovery order
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	msg := fmt.Sprintf("version conflict for %s: %s@%s already selected, but %q is required",
		e.Name, e.Name, e.Chosen, e.Requirement)
	if len(e.Parents) > 0 {
		msg += fmt.Sprintf(" (requested by %s)", strings.Join(e.Parents, ", "))
	}
	return msg
}

// Code returns the error code for this error type.
func (e *VersionConflictError) Code() Code { return ErrCodeVersionConflict }

// CircularDependencyError reports a dependency cycle.
type CircularDependencyError struct {
	Cycle []string // The cycle path, first and last entry identical
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// Code returns the error code for this error type.
func (e *CircularDependencyError) Code() Code { return ErrCodeCircularDependency }

// CorruptLockfileError reports a lockfile that failed structural validation.
// Collaborators should treat this as recoverable: discard the lockfile and
// re-resolve from the manifest.
type CorruptLockfileError struct {
	Reason string // What failed validation
	Cause  error  // Underlying decode error (optional)
}

// Error implements the error interface.
func (e *CorruptLockfileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt lockfile: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("corrupt lockfile: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CorruptLockfileError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *CorruptLockfileError) Code() Code { return ErrCodeCorruptLockfile }
