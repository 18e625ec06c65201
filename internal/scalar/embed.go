// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package scalar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/tokens"
)

// MaxEmbedBatch is the most texts sent in one embedding request.
const MaxEmbedBatch = 100

// ErrTextTooLong is returned when a row's text exceeds the model's context
// window.
var ErrTextTooLong = errors.New("scalar: row text exceeds the context window")

// Embedding is one row's vector.
type Embedding struct {
	Row       batch.Row `json:"row"`
	Embedding []float32 `json:"embedding"`
}

// EmbedOptions configures Embed.
type EmbedOptions struct {
	Model         string
	ContextWindow int
	Counter       tokens.Counter
}

// RowText is the text embedded for row: its values in field order, strings
// bare and everything else as JSON, separated by spaces.
func RowText(row batch.Row) string {
	var b strings.Builder
	for i, k := range row.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		v, _ := row.Get(k)
		if s, ok := v.(string); ok {
			b.WriteString(s)
			continue
		}
		raw, _ := row.Raw(k)
		b.Write(raw)
	}
	return b.String()
}

// Embed returns one embedding per row, in input order. Every row is checked
// against the context window before any request is made.
func Embed(ctx context.Context, e llm.Embedder, rows []batch.Row, opts EmbedOptions) ([]Embedding, error) {
	count := opts.Counter
	if count == nil {
		count = tokens.Words
	}

	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = RowText(row)
		if opts.ContextWindow > 0 {
			if n := count(texts[i]); n > opts.ContextWindow {
				return nil, fmt.Errorf("%w: row %d needs %d tokens, window is %d",
					ErrTextTooLong, i, n, opts.ContextWindow)
			}
		}
	}

	out := make([]Embedding, 0, len(rows))
	for start := 0; start < len(texts); start += MaxEmbedBatch {
		end := min(start+MaxEmbedBatch, len(texts))
		vecs, err := e.Embed(ctx, opts.Model, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("scalar: got %d embeddings for %d rows", len(vecs), end-start)
		}
		for i, v := range vecs {
			out = append(out, Embedding{Row: rows[start+i], Embedding: v})
		}
	}
	return out, nil
}
