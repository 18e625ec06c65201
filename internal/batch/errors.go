// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"errors"
	"fmt"
)

// Fatal conditions raised by the engine. Provider conditions (output
// overflow, refusal, content filtering) are the llm package's sentinels and
// pass through unchanged.
var (
	// ErrFixedOverheadExceeded means the template, instruction and any
	// invoker overhead alone do not fit the model's context window.
	ErrFixedOverheadExceeded = errors.New("batch: fixed prompt overhead exceeds context window")

	// ErrOutputBudgetExhausted means the model overflowed its output limit
	// on a batch of a single row, so shrinking cannot help.
	ErrOutputBudgetExhausted = errors.New("batch: output exceeds max output tokens for a single row")

	// ErrProtocolViolation means a model reply was missing required fields
	// or referenced a local id outside the batch.
	ErrProtocolViolation = errors.New("batch: model response violates protocol")

	// ErrEmptyInput means an operation that needs rows got none.
	ErrEmptyInput = errors.New("batch: no input rows")
)

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
