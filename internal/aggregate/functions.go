// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package aggregate

import (
	"context"
	"encoding/json"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/prompt"
)

var jsonNull = json.RawMessage("null")

func init() {
	Register(&selectFunc{kind: prompt.KindMax})
	Register(&selectFunc{kind: prompt.KindMin})
	Register(reduceFunc{})
	Register(rerankFunc{})
	Register(completeFunc{})
	Register(filterFunc{})
}

// selectFunc returns the single most or least relevant row.
type selectFunc struct {
	kind prompt.Kind
}

func (f *selectFunc) Name() string { return string(f.kind) }

func (f *selectFunc) Description() string {
	if f.kind == prompt.KindMin {
		return "row least relevant to the prompt (tournament)"
	}
	return "row most relevant to the prompt (tournament)"
}

func (f *selectFunc) Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error) {
	if len(rows) == 0 {
		return jsonNull, nil
	}
	row, err := eng.SelectOne(ctx, call, rows, f.kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(row)
}

type reduceFunc struct{}

func (reduceFunc) Name() string        { return "reduce" }
func (reduceFunc) Description() string { return "summarize all rows into one value (map-reduce)" }

func (reduceFunc) Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error) {
	if len(rows) == 0 {
		return jsonNull, nil
	}
	return eng.ReduceAll(ctx, call, rows)
}

type rerankFunc struct{}

func (rerankFunc) Name() string        { return "rerank" }
func (rerankFunc) Description() string { return "all rows ordered most to least relevant (sliding window)" }

func (rerankFunc) Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error) {
	ranked, err := eng.Rank(ctx, call, rows)
	if err != nil {
		return nil, err
	}
	if ranked == nil {
		ranked = []batch.Row{}
	}
	return json.Marshal(ranked)
}

type completeFunc struct{}

func (completeFunc) Name() string        { return "complete" }
func (completeFunc) Description() string { return "one model answer per row, in row order" }

func (completeFunc) Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error) {
	answers, err := eng.Complete(ctx, call, rows, prompt.KindComplete)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = []json.RawMessage{}
	}
	return json.Marshal(answers)
}

type filterFunc struct{}

func (filterFunc) Name() string        { return "filter" }
func (filterFunc) Description() string { return "rows the model judges to satisfy the prompt" }

func (filterFunc) Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error) {
	verdicts, err := eng.Complete(ctx, call, rows, prompt.KindFilter)
	if err != nil {
		return nil, err
	}
	kept := make([]batch.Row, 0, len(rows))
	for i, v := range verdicts {
		if string(v) == "true" {
			kept = append(kept, rows[i])
		}
	}
	return json.Marshal(kept)
}
