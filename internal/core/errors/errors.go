// Package errors defines the failure taxonomy of a recipe run.
//
// Every failure aborts the run. A StructuredError carries a code for
// programmatic handling, a message, the underlying cause and optional
// context such as the failing step or the external tool's exit code.
// errors.Is matches a StructuredError against the sentinel of its code:
//
//	if errors.Is(err, rerrors.ErrBuildFailure) { ... }
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode classifies a failure.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable indicates a bad version, URL or network failure while fetching.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// ErrCodeExtraction indicates a corrupt or unsupported archive.
	ErrCodeExtraction ErrorCode = "EXTRACTION"
	// ErrCodeBuildFailure indicates a non-zero exit from the configure or compile step.
	ErrCodeBuildFailure ErrorCode = "BUILD_FAILURE"
	// ErrCodeTestFailure indicates the test step reported failures.
	ErrCodeTestFailure ErrorCode = "TEST_FAILURE"
	// ErrCodeInstallFailure indicates a non-zero exit from the install step or a failed packaging copy.
	ErrCodeInstallFailure ErrorCode = "INSTALL_FAILURE"
	// ErrCodeInvalidRequest indicates malformed input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Sentinels for errors.Is.
var (
	ErrSourceUnavailable = New(ErrCodeSourceUnavailable, "source unavailable")
	ErrExtraction        = New(ErrCodeExtraction, "extraction failed")
	ErrBuildFailure      = New(ErrCodeBuildFailure, "build failed")
	ErrTestFailure       = New(ErrCodeTestFailure, "tests failed")
	ErrInstallFailure    = New(ErrCodeInstallFailure, "install failed")
	ErrInvalidRequest    = New(ErrCodeInvalidRequest, "invalid request")
)

// StructuredError provides structured error information for a failed step.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a StructuredError with the same code.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the first StructuredError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if se, ok := err.(*StructuredError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
