package main

import (
	"errors"
	"fmt"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/scalar"
)

// Exit codes for the llmagg CLI.
const (
	ExitOK          = 0 // Results written.
	ExitInvalidArgs = 1 // Invalid arguments, config, input or model name.
	ExitModelError  = 2 // A model call failed or broke the response protocol.
	ExitBudget      = 3 // The prompt or the output does not fit the model's budget.
)

// exitCodeError carries a non-zero exit code through cobra's error handling.
type exitCodeError struct {
	code int
	msg  string
	err  error
}

func (e *exitCodeError) Error() string { return e.msg }

func (e *exitCodeError) Unwrap() error { return e.err }

// ExitCode returns the exit code for this error.
func (e *exitCodeError) ExitCode() int { return e.code }

// exitError creates an exitCodeError. If msg is empty, the error message is
// set to a generic description of the exit code.
func exitError(code int, format string, args ...any) *exitCodeError {
	err := fmt.Errorf(format, args...)
	msg := err.Error()
	if msg == "" {
		switch code {
		case ExitModelError:
			msg = "llmagg: model call failed"
		case ExitBudget:
			msg = "llmagg: token budget exceeded"
		default:
			msg = "llmagg: error"
		}
	}
	return &exitCodeError{code: code, msg: msg, err: err}
}

// runFailure maps a failed run to its exit code.
func runFailure(err error) *exitCodeError {
	switch {
	case errors.Is(err, batch.ErrFixedOverheadExceeded), errors.Is(err, batch.ErrOutputBudgetExhausted),
		errors.Is(err, scalar.ErrTextTooLong):
		return exitError(ExitBudget, "llmagg: %w", err)
	case errors.Is(err, catalog.ErrModelNotFound), errors.Is(err, catalog.ErrPromptNotFound),
		errors.Is(err, batch.ErrEmptyInput), errors.Is(err, llm.ErrEmbeddingsUnsupported),
		errors.Is(err, scalar.ErrNoFields):
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	default:
		return exitError(ExitModelError, "llmagg: %w", err)
	}
}
