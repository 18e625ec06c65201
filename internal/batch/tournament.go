// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/davetashner/llmagg/internal/prompt"
)

// SelectOne runs a knockout tournament over rows and returns the row the
// model judges most (prompt.KindMax) or least (prompt.KindMin) relevant to
// the instruction. The returned row is one of the input rows, unchanged.
func (e *Engine) SelectOne(ctx context.Context, call Call, rows []Row, kind prompt.Kind) (Row, error) {
	if kind != prompt.KindMax && kind != prompt.KindMin {
		return Row{}, fmt.Errorf("batch: select needs kind max or min, got %q", kind)
	}
	if len(rows) == 0 {
		return Row{}, ErrEmptyInput
	}
	if len(rows) == 1 {
		return rows[0], nil
	}

	p, err := e.plan(call, kind)
	if err != nil {
		return Row{}, err
	}

	candidates := rows
	for round := 1; len(candidates) > 1; round++ {
		batches := p.packer.Pack(candidates, p.available)
		if len(batches) == len(candidates) {
			// Every candidate is too large to share a batch. Pair them so the
			// round still halves the field.
			e.logger.Warn("candidates exceed input budget, pairing",
				"kind", kind, "round", round, "candidates", len(candidates), "available", p.available)
			batches = p.packer.pairUp(candidates)
		}

		winners := make([]Row, 0, len(batches))
		for _, b := range batches {
			if b.Len() == 1 {
				winners = append(winners, b.Rows[0].Row)
				continue
			}
			id, err := e.selectIn(ctx, call, p, b)
			if err != nil {
				return Row{}, fmt.Errorf("round %d: %w", round, err)
			}
			winners = append(winners, b.Rows[id].Row)
		}

		e.logger.Debug("tournament round",
			"kind", kind, "round", round, "candidates", len(candidates),
			"batches", len(batches), "winners", len(winners))
		candidates = winners
	}
	return candidates[0], nil
}

func (e *Engine) selectIn(ctx context.Context, call Call, p plan, b Batch) (int, error) {
	raw, err := e.invoke(ctx, call, p, b.Items())
	if err != nil {
		return 0, err
	}

	sel := gjson.GetBytes(raw, "selected")
	if !sel.Exists() {
		return 0, protocolError("reply has no \"selected\" field: %.200s", raw)
	}
	id, ok := localID(sel, b.Len())
	if !ok {
		return 0, protocolError("selected id %s is not in [0, %d)", sel.Raw, b.Len())
	}
	return id, nil
}

// localID reads an integer id in [0, n) from v.
func localID(v gjson.Result, n int) (int, bool) {
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return 0, false
	}
	id := int(v.Int())
	if id < 0 || id >= n {
		return 0, false
	}
	return id, true
}
