// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byScore ranks items by their "score" field, highest first.
func byScore(items []promptItem) (string, error) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = items[i].id
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].content.Get("score").Float() > items[order[b]].content.Get("score").Float()
	})
	out, err := json.Marshal(map[string][]int{"ranking": order})
	return string(out), err
}

func TestRank_TrivialInputs(t *testing.T) {
	e := New()
	call := Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: neverCalled(t)}

	got, err := e.Rank(context.Background(), call, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	rows := contentRows(1)
	got, err = e.Rank(context.Background(), call, rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, sameRow(rows[0], got[0]))
}

func TestRank_TenRowsWindowOfFour(t *testing.T) {
	// Each row costs 10 and 40 tokens are available: four rows per window.
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: byScore}
	rows := contentRows(10)

	got, err := e.Rank(context.Background(), Call{Instruction: testInstruction, Budget: Budget{40, 10}, Invoker: model}, rows)
	require.NoError(t, err)

	require.Len(t, got, 10)
	seen := make(map[int]int)
	for _, g := range got {
		for i, r := range rows {
			if sameRow(r, g) {
				seen[i]++
			}
		}
	}
	require.Len(t, seen, 10, "every row appears")
	for i, n := range seen {
		assert.Equal(t, 1, n, "row %d appears %d times", i, n)
	}

	// 4 fresh rows, then 2 carried + 2 fresh three times.
	assert.Equal(t, 4, model.calls())
	for _, w := range model.windows {
		assert.LessOrEqual(t, len(w), 4)
	}

	// The best row is carried through every pass and comes out first.
	best, _ := got[0].Raw("score")
	assert.Equal(t, "9", string(best))
}

func TestRank_SingleWindowIsFullySorted(t *testing.T) {
	e := New(WithCounter(costs(10, 0)))
	model := &fakeModel{t: t, reply: byScore}

	got, err := e.Rank(context.Background(), Call{Instruction: testInstruction, Budget: Budget{1000, 10}, Invoker: model}, contentRows(6))
	require.NoError(t, err)
	require.Equal(t, 1, model.calls())

	var scores []string
	for _, r := range got {
		s, _ := r.Raw("score")
		scores = append(scores, string(s))
	}
	assert.Equal(t, []string{"8", "7", "5", "4", "1", "0"}, scores)
}

func TestRank_OversizedRowsStillProgress(t *testing.T) {
	e := New(WithCounter(costs(100, 0)))
	model := &fakeModel{t: t, reply: byScore}

	got, err := e.Rank(context.Background(), Call{Instruction: testInstruction, Budget: Budget{50, 10}, Invoker: model}, contentRows(3))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	// Windows of one row never reach the model.
	assert.Equal(t, 0, model.calls())
}

func TestRank_RejectsNonPermutation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing array", `{"order": [0, 1, 2]}`},
		{"too short", `{"ranking": [0, 1]}`},
		{"duplicate", `{"ranking": [0, 0, 1]}`},
		{"out of range", `{"ranking": [0, 1, 3]}`},
		{"not integers", `{"ranking": ["a", "b", "c"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithCounter(costs(10, 0)))
			model := &fakeModel{t: t, reply: func([]promptItem) (string, error) { return tt.reply, nil }}

			_, err := e.Rank(context.Background(), Call{Instruction: testInstruction, Budget: Budget{100, 10}, Invoker: model}, contentRows(3))
			assert.ErrorIs(t, err, ErrProtocolViolation)
		})
	}
}
