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

// ReduceAll folds rows into a single model-produced summary. Rows are
// consumed from last to first; each round sends the previous summary plus as
// many unconsumed rows as fit, and always at least one.
func (e *Engine) ReduceAll(ctx context.Context, call Call, rows []Row) (json.RawMessage, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	if len(rows) == 1 {
		return json.Marshal(rows[0])
	}

	p, err := e.plan(call, prompt.KindReduce)
	if err != nil {
		return nil, err
	}

	var (
		window  []any
		used    int
		summary json.RawMessage
	)
	cursor := len(rows) - 1
	for round := 1; cursor >= 0; round++ {
		admitted := 0
		for cursor >= 0 {
			cost := p.packer.Cost(rows[cursor])
			if admitted > 0 && used+cost > p.available {
				break
			}
			window = append(window, rows[cursor])
			used += cost
			cursor--
			admitted++
		}

		raw, err := e.invoke(ctx, call, p, itemsOf(window))
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		out := gjson.GetBytes(raw, "output")
		if !out.Exists() {
			return nil, protocolError("reply has no \"output\" field: %.200s", raw)
		}
		summary = json.RawMessage(out.Raw)

		e.logger.Debug("reduce round",
			"round", round, "window", len(window), "admitted", admitted, "remaining", cursor+1)

		window = []any{summary}
		used = e.cost(summary)
	}
	return summary, nil
}
