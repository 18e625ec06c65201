// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"fmt"

	"github.com/davetashner/llmagg/internal/prompt"
	"github.com/davetashner/llmagg/internal/tokens"
)

// Budget is the token allowance of one model, fixed for an invocation.
type Budget struct {
	ContextWindow   int `json:"context_window" yaml:"context_window"`
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// Validate rejects non-positive limits.
func (b Budget) Validate() error {
	if b.ContextWindow <= 0 {
		return fmt.Errorf("batch: context window must be positive, got %d", b.ContextWindow)
	}
	if b.MaxOutputTokens <= 0 {
		return fmt.Errorf("batch: max output tokens must be positive, got %d", b.MaxOutputTokens)
	}
	return nil
}

// Batch is one model invocation's worth of rows and their summed token cost.
type Batch struct {
	Rows   []IndexedRow
	Tokens int
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Rows) }

// Items converts the batch to prompt items keyed by local id.
func (b Batch) Items() []prompt.Item {
	items := make([]prompt.Item, len(b.Rows))
	for i, ir := range b.Rows {
		items[i] = prompt.Item{ID: ir.ID, Content: ir.Row}
	}
	return items
}

// Packer groups rows into batches whose rendered cost fits a token budget.
type Packer struct {
	// Count measures rendered text.
	Count tokens.Counter
	// Render turns a row into the text it contributes to a prompt.
	Render func(Row) string
}

// NewPacker returns a packer that prices rows as prompt item lines.
func NewPacker(count tokens.Counter) Packer {
	return Packer{Count: count, Render: renderRow}
}

func renderRow(r Row) string {
	return prompt.Line(prompt.Item{Content: r})
}

// Cost returns the token cost of a single row.
func (p Packer) Cost(r Row) int {
	return p.Count(p.Render(r))
}

// Pack splits rows, in order, into the fewest greedy batches that each stay
// within available tokens. A row that alone exceeds available tokens is
// placed in a batch by itself. Concatenating the batches yields rows.
func (p Packer) Pack(rows []Row, available int) []Batch {
	var batches []Batch
	for start := 0; start < len(rows); {
		b := p.Next(rows[start:], available, 0)
		batches = append(batches, b)
		start += b.Len()
	}
	return batches
}

// Next returns the first greedy batch from rows, holding at most maxRows rows
// when maxRows > 0. It always holds at least one row if rows is non-empty.
func (p Packer) Next(rows []Row, available, maxRows int) Batch {
	var b Batch
	for i, r := range rows {
		if maxRows > 0 && len(b.Rows) >= maxRows {
			break
		}
		cost := p.Cost(r)
		if len(b.Rows) > 0 && b.Tokens+cost > available {
			break
		}
		b.Rows = append(b.Rows, IndexedRow{ID: i, Row: r})
		b.Tokens += cost
	}
	return b
}

// pairUp batches rows two at a time regardless of cost.
func (p Packer) pairUp(rows []Row) []Batch {
	batches := make([]Batch, 0, (len(rows)+1)/2)
	for i := 0; i < len(rows); i += 2 {
		var b Batch
		for j := i; j < i+2 && j < len(rows); j++ {
			b.Rows = append(b.Rows, IndexedRow{ID: j - i, Row: rows[j]})
			b.Tokens += p.Cost(rows[j])
		}
		batches = append(batches, b)
	}
	return batches
}
