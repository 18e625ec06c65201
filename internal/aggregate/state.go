// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package aggregate

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/davetashner/llmagg/internal/batch"
)

// ErrFinalized is returned when a state is finalized a second time.
var ErrFinalized = errors.New("aggregate: state already finalized")

// State accumulates the rows of one group in arrival order. Partial states
// built over separate partitions merge with Combine. A State is not safe for
// concurrent use; each group owns its own.
type State struct {
	rows []batch.Row
	done bool
}

// Update appends rows to the state.
func (s *State) Update(rows ...batch.Row) {
	s.rows = append(s.rows, rows...)
}

// Combine appends the rows of later, a state built over a subsequent
// partition, and empties it.
func (s *State) Combine(later *State) {
	if later == nil || later == s {
		return
	}
	s.rows = append(s.rows, later.rows...)
	later.rows = nil
}

// Rows returns the accumulated rows.
func (s *State) Rows() []batch.Row { return s.rows }

// Len returns the number of accumulated rows.
func (s *State) Len() int { return len(s.rows) }

// Finalize runs fn over the accumulated rows and releases them. A state can
// be finalized once.
func (s *State) Finalize(ctx context.Context, fn Function, eng *batch.Engine, call batch.Call) (json.RawMessage, error) {
	if s.done {
		return nil, ErrFinalized
	}
	s.done = true
	rows := s.rows
	s.rows = nil
	return fn.Finalize(ctx, eng, call, rows)
}
