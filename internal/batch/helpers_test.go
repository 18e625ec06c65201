// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/davetashner/llmagg/internal/tokens"
)

var itemLine = regexp.MustCompile(`(?m)^\[(\d+)\] (.*)$`)

const testInstruction = "pick the best"

// costs prices each rendered item line at row tokens, the test instruction at
// instruction tokens, and any other text (templates, outputs) at zero.
func costs(row, instruction int) tokens.Counter {
	return func(s string) int {
		switch {
		case s == testInstruction:
			return instruction
		case !strings.Contains(s, "\n") && itemLine.MatchString(s):
			return row
		default:
			return 0
		}
	}
}

type promptItem struct {
	id      int
	content gjson.Result
}

// text returns the item's "content" field, or the item itself when it is a
// bare string such as a carried summary.
func (it promptItem) text() string {
	if it.content.Type == gjson.String {
		return it.content.String()
	}
	return it.content.Get("content").String()
}

func parseItems(t *testing.T, prompt string) []promptItem {
	t.Helper()
	var items []promptItem
	for _, m := range itemLine.FindAllStringSubmatch(prompt, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			t.Fatalf("bad item id %q", m[1])
		}
		if !gjson.Valid(m[2]) {
			t.Fatalf("item %d is not JSON: %s", id, m[2])
		}
		items = append(items, promptItem{id: id, content: gjson.Parse(m[2])})
	}
	return items
}

// fakeModel is a deterministic Invoker that answers from the parsed items.
type fakeModel struct {
	t       *testing.T
	reply   func(items []promptItem) (string, error)
	prompts []string
	windows [][]promptItem
}

func (f *fakeModel) Invoke(_ context.Context, prompt string, _ Budget) (json.RawMessage, error) {
	items := parseItems(f.t, prompt)
	f.prompts = append(f.prompts, prompt)
	f.windows = append(f.windows, items)
	out, err := f.reply(items)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func (f *fakeModel) calls() int { return len(f.prompts) }

// neverCalled fails the test if the model is invoked.
func neverCalled(t *testing.T) Invoker {
	return InvokerFunc(func(context.Context, string, Budget) (json.RawMessage, error) {
		t.Fatal("model should not be invoked")
		return nil, nil
	})
}

func contentRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = NewRow("content", fmt.Sprintf("c%d", i+1), "score", float64(i*7%10))
	}
	return rows
}

func sameRow(a, b Row) bool { return a.fields == b.fields }

func itoa(i int) string { return strconv.Itoa(i) }
