// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/davetashner/llmagg/internal/prompt"
)

// Complete produces one model output per row, in input order. With
// prompt.KindFilter every output is a JSON boolean; with prompt.KindComplete
// outputs are arbitrary JSON values. Batch sizes adapt to output volume.
func (e *Engine) Complete(ctx context.Context, call Call, rows []Row, kind prompt.Kind) ([]json.RawMessage, error) {
	if kind != prompt.KindComplete && kind != prompt.KindFilter {
		return nil, fmt.Errorf("batch: complete needs kind complete or filter, got %q", kind)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	p, err := e.plan(call, kind)
	if err != nil {
		return nil, err
	}

	ctrl := &Controller{
		Packer:    p.packer,
		Budget:    call.Budget,
		Available: p.available,
		Shrink:    e.shrink,
		Logger:    e.logger,
	}
	results, err := ctrl.Run(ctx, rows, func(ctx context.Context, b Batch) (json.RawMessage, error) {
		raw, err := e.invoke(ctx, call, p, b.Items())
		if err != nil {
			return nil, err
		}
		return checkTuples(raw, b.Len(), kind)
	})
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range results {
		for _, v := range gjson.ParseBytes(r.Output).Array() {
			out = append(out, json.RawMessage(v.Raw))
		}
	}
	return out, nil
}

// checkTuples validates the "tuples" array of a reply and returns it.
func checkTuples(raw json.RawMessage, n int, kind prompt.Kind) (json.RawMessage, error) {
	tuples := gjson.GetBytes(raw, "tuples")
	if !tuples.IsArray() {
		return nil, protocolError("reply has no \"tuples\" array: %.200s", raw)
	}
	values := tuples.Array()
	if len(values) != n {
		return nil, protocolError("reply has %d tuples for %d rows", len(values), n)
	}
	if kind == prompt.KindFilter {
		for i, v := range values {
			if v.Type != gjson.True && v.Type != gjson.False {
				return nil, protocolError("filter tuple %d is %s, want a boolean", i, v.Raw)
			}
		}
	}
	return json.RawMessage(tuples.Raw), nil
}
