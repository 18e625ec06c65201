// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/prompt"
)

// upper answers each item with its content upper-cased.
func upper(items []promptItem) (string, error) {
	answers := make([]string, len(items))
	for i, it := range items {
		answers[i] = strings.ToUpper(it.text())
	}
	out, err := json.Marshal(map[string][]string{"tuples": answers})
	return string(out), err
}

func rawStrings(t *testing.T, raws []json.RawMessage) []string {
	t.Helper()
	out := make([]string, len(raws))
	for i, r := range raws {
		require.NoError(t, json.Unmarshal(r, &out[i]))
	}
	return out
}

func TestComplete_OneAnswerPerRowInOrder(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: upper}

	got, err := e.Complete(context.Background(), Call{Instruction: testInstruction, Budget: Budget{30, 100}, Invoker: model}, contentRows(7), prompt.KindComplete)
	require.NoError(t, err)

	assert.Equal(t, []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7"}, rawStrings(t, got))
	// Three rows fit per call.
	assert.Equal(t, 3, model.calls())
}

func TestComplete_ShrinksOnOverflow(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: func(items []promptItem) (string, error) {
		if len(items) > 2 {
			return "", overflow(len(items))
		}
		return upper(items)
	}}

	got, err := e.Complete(context.Background(), Call{Instruction: testInstruction, Budget: Budget{1000, 100}, Invoker: model}, contentRows(5), prompt.KindComplete)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2", "C3", "C4", "C5"}, rawStrings(t, got))
}

func TestComplete_SingleRowOverflowIsFatal(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: func(items []promptItem) (string, error) {
		return "", overflow(len(items))
	}}

	_, err := e.Complete(context.Background(), Call{Instruction: testInstruction, Budget: Budget{1000, 100}, Invoker: model}, contentRows(4), prompt.KindComplete)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputBudgetExhausted))
	assert.True(t, errors.Is(err, llm.ErrOutputBudgetExceeded))
}

func TestComplete_Filter(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: func(items []promptItem) (string, error) {
		keep := make([]bool, len(items))
		for i, it := range items {
			keep[i] = it.content.Get("score").Float() >= 5
		}
		out, err := json.Marshal(map[string][]bool{"tuples": keep})
		return string(out), err
	}}

	got, err := e.Complete(context.Background(), Call{Instruction: testInstruction, Budget: Budget{1000, 100}, Invoker: model}, contentRows(4), prompt.KindFilter)
	require.NoError(t, err)

	want := []string{"false", "true", "false", "false"}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], string(got[i]))
	}
}

func TestComplete_ProtocolViolations(t *testing.T) {
	tests := []struct {
		name  string
		kind  prompt.Kind
		reply string
	}{
		{"missing tuples", prompt.KindComplete, `{"answers": ["a", "b"]}`},
		{"too few", prompt.KindComplete, `{"tuples": ["a"]}`},
		{"too many", prompt.KindComplete, `{"tuples": ["a", "b", "c"]}`},
		{"filter non-boolean", prompt.KindFilter, `{"tuples": [true, "yes"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithCounter(costs(10, 0)))
			model := &fakeModel{t: t, reply: func([]promptItem) (string, error) { return tt.reply, nil }}

			_, err := e.Complete(context.Background(), Call{Instruction: testInstruction, Budget: Budget{1000, 100}, Invoker: model}, contentRows(2), tt.kind)
			assert.ErrorIs(t, err, ErrProtocolViolation)
		})
	}
}

func TestComplete_EmptyAndBadKind(t *testing.T) {
	e := New()
	call := Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: neverCalled(t)}

	got, err := e.Complete(context.Background(), call, nil, prompt.KindComplete)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.Complete(context.Background(), call, contentRows(2), prompt.KindMax)
	assert.Error(t, err)
}
