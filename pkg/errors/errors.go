// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for roundtable.
// Fatal round errors carry one of the codes below; reject outcomes are normal
// control flow and never appear here.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies roundtable errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeConfiguration indicates an invalid configuration, such as an unknown
	// strategy variant or a roster that fails validation. Surfaced at
	// construction time, before any round runs.
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// CodeEmptyRoster indicates role assignment returned no actors.
	CodeEmptyRoster ErrorCode = "EMPTY_ROSTER"

	// CodeEmptyPlan indicates decision making returned no plan candidates.
	CodeEmptyPlan ErrorCode = "EMPTY_PLAN"

	// CodeExecutor indicates the executor failed. The cause is preserved
	// unmodified and reachable through Unwrap.
	CodeExecutor ErrorCode = "EXECUTOR"

	// CodeEvaluator indicates the evaluator itself failed. Unrecognized score
	// shapes are not errors; they reject the round.
	CodeEvaluator ErrorCode = "EVALUATOR"

	// CodeProvider indicates an LLM provider error.
	CodeProvider ErrorCode = "PROVIDER"

	// CodeCanceled indicates the round was aborted by context cancellation.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeArchive indicates a round archive storage error.
	CodeArchive ErrorCode = "ARCHIVE"

	// CodeMemory indicates an experience memory error.
	CodeMemory ErrorCode = "MEMORY"
)

// RoundtableError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type RoundtableError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *RoundtableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *RoundtableError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *RoundtableError) MarshalJSON() ([]byte, error) {
	type Alias RoundtableError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new RoundtableError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *RoundtableError {
	return &RoundtableError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *RoundtableError) WithContext(key string, value interface{}) *RoundtableError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *RoundtableError) WithAttribute(key, value string) *RoundtableError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *RoundtableError) WithRecoverable(recoverable bool) *RoundtableError {
	e.Recoverable = recoverable
	return e
}

// AsRoundtableError attempts to convert an error to a RoundtableError.
// Returns the error as RoundtableError if one is found in the chain, or wraps
// it as internal otherwise.
func AsRoundtableError(err error) *RoundtableError {
	if err == nil {
		return nil
	}
	var re *RoundtableError
	if errors.As(err, &re) {
		return re
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the error code carried by err, or CodeInternal if none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var re *RoundtableError
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var re *RoundtableError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRecoverable reports whether err is marked recoverable. Errors outside the
// roundtable taxonomy are not recoverable.
func IsRecoverable(err error) bool {
	var re *RoundtableError
	if errors.As(err, &re) {
		return re.Recoverable
	}
	return false
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *RoundtableError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
