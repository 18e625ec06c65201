// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/davetashner/llmagg/internal/prompt"
)

// Rank orders rows from most to least relevant to the instruction using a
// sliding window. Each pass ranks the rows carried from the previous pass
// plus as many fresh rows (taken from the end of the input) as fit; the
// better half is carried forward and the rest is settled. The result is a
// permutation of rows.
func (e *Engine) Rank(ctx context.Context, call Call, rows []Row) ([]Row, error) {
	if len(rows) <= 1 {
		return append([]Row(nil), rows...), nil
	}

	p, err := e.plan(call, prompt.KindRerank)
	if err != nil {
		return nil, err
	}

	var (
		carry   []Row
		settled [][]Row
	)
	cursor := len(rows) - 1
	for pass := 1; cursor >= 0; pass++ {
		window := append([]Row(nil), carry...)
		used := 0
		for _, r := range carry {
			used += p.packer.Cost(r)
		}

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

		ranked, err := e.rankWindow(ctx, call, p, window)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}

		half := len(ranked) / 2
		carry = ranked[:half]
		settled = append(settled, ranked[half:])

		e.logger.Debug("rank pass",
			"pass", pass, "window", len(window), "admitted", admitted,
			"carried", len(carry), "remaining", cursor+1)
	}

	out := make([]Row, 0, len(rows))
	out = append(out, carry...)
	for i := len(settled) - 1; i >= 0; i-- {
		out = append(out, settled[i]...)
	}
	return out, nil
}

// rankWindow returns window reordered best first. A window of one row needs
// no model call.
func (e *Engine) rankWindow(ctx context.Context, call Call, p plan, window []Row) ([]Row, error) {
	if len(window) == 1 {
		return window, nil
	}

	contents := make([]any, len(window))
	for i, r := range window {
		contents[i] = r
	}
	raw, err := e.invoke(ctx, call, p, itemsOf(contents))
	if err != nil {
		return nil, err
	}

	ranking := gjson.GetBytes(raw, "ranking")
	if !ranking.IsArray() {
		return nil, protocolError("reply has no \"ranking\" array: %.200s", raw)
	}
	ids := ranking.Array()
	if len(ids) != len(window) {
		return nil, protocolError("ranking has %d ids for %d rows", len(ids), len(window))
	}

	seen := make([]bool, len(window))
	ranked := make([]Row, 0, len(window))
	for _, v := range ids {
		id, ok := localID(v, len(window))
		if !ok {
			return nil, protocolError("ranking id %s is not in [0, %d)", v.Raw, len(window))
		}
		if seen[id] {
			return nil, protocolError("ranking repeats id %d", id)
		}
		seen[id] = true
		ranked = append(ranked, window[id])
	}
	return ranked, nil
}
