// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concatReducer(items []promptItem) (string, error) {
	var s string
	for _, it := range items {
		s += it.text()
	}
	out, err := json.Marshal(map[string]string{"output": s})
	return string(out), err
}

func TestReduceAll_SingleRowSkipsModel(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	rows := []Row{NewRow("content", "only")}

	got, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: neverCalled(t)}, rows)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"only"}`, string(got))
}

func TestReduceAll_EmptyInput(t *testing.T) {
	e := New()
	_, err := e.ReduceAll(context.Background(), Call{Budget: Budget{100, 10}, Invoker: neverCalled(t)}, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReduceAll_FoldsInReverseArrivalOrder(t *testing.T) {
	tests := []struct {
		name      string
		window    int // context window; each item costs 10
		wantCalls int
	}{
		{"all rows in one round", 100, 1},
		{"one row per round", 15, 3},
		{"summary plus one row", 20, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithCounter(costs(10, 0)))
			model := &fakeModel{t: t, reply: concatReducer}

			got, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{tt.window, 10}, Invoker: model}, contentRows(3))
			require.NoError(t, err)

			assert.JSONEq(t, `"c3c2c1"`, string(got))
			assert.Equal(t, tt.wantCalls, model.calls())
		})
	}
}

func TestReduceAll_CarriesSummaryFirst(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: concatReducer}

	_, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{20, 10}, Invoker: model}, contentRows(4))
	require.NoError(t, err)

	require.Equal(t, 3, model.calls())
	first := model.windows[0]
	require.Len(t, first, 2)
	assert.Equal(t, "c4", first[0].text())
	assert.Equal(t, "c3", first[1].text())

	second := model.windows[1]
	require.Len(t, second, 2)
	assert.Equal(t, "c4c3", second[0].text(), "previous summary leads the window")
	assert.Equal(t, "c2", second[1].text())
}

func TestReduceAll_StructuredOutput(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: func(items []promptItem) (string, error) {
		return `{"output": {"count": 2, "tags": ["a", "b"]}}`, nil
	}}

	got, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: model}, contentRows(2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 2, "tags": ["a", "b"]}`, string(got))
}

func TestReduceAll_MissingOutput(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: func([]promptItem) (string, error) { return `{"result": 1}`, nil }}

	_, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: model}, contentRows(2))
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestReduceAll_FixedOverheadTooLarge(t *testing.T) {
	e := New(WithCounter(costs(10, 500)))
	_, err := e.ReduceAll(context.Background(), Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: neverCalled(t)}, contentRows(2))
	assert.ErrorIs(t, err, ErrFixedOverheadExceeded)
}
