// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/davetashner/llmagg/internal/llm"
)

// BatchFunc processes one batch and returns the model's output for it.
type BatchFunc func(ctx context.Context, b Batch) (json.RawMessage, error)

// BatchResult is the output of one successful batch.
type BatchResult struct {
	Batch  Batch
	Output json.RawMessage
}

// Controller drives batches whose size adapts to observed output. Batch size
// is bounded by the input budget and by a row target that grows or shrinks
// with how many output tokens each row produced.
type Controller struct {
	Packer    Packer
	Budget    Budget
	Available int
	Shrink    float64
	Logger    *slog.Logger
}

// Run processes rows in order with fn, retrying a batch with fewer rows each
// time fn reports llm.ErrOutputBudgetExceeded. A single-row overflow is fatal.
// Results are returned in input order and cover every row exactly once.
func (c *Controller) Run(ctx context.Context, rows []Row, fn BatchFunc) ([]BatchResult, error) {
	shrink := c.Shrink
	if shrink <= 0 || shrink >= 1 {
		shrink = DefaultShrinkFactor
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target := len(rows)
	var results []BatchResult
	for start := 0; start < len(rows); {
		b := c.Packer.Next(rows[start:], c.Available, target)

		out, err := fn(ctx, b)
		if err != nil {
			if !errors.Is(err, llm.ErrOutputBudgetExceeded) {
				return nil, err
			}
			if b.Len() <= 1 {
				return nil, fmt.Errorf("%w: row %d: %w", ErrOutputBudgetExhausted, start, err)
			}
			target = shrinkSize(b.Len(), shrink)
			logger.Debug("output overflow, shrinking batch",
				"start", start, "rows", b.Len(), "next_rows", target)
			continue
		}

		results = append(results, BatchResult{Batch: b, Output: out})
		start += b.Len()
		target = nextTarget(c.Packer.Count(string(out)), b.Len(), c.Budget.MaxOutputTokens, len(rows))
	}
	return results, nil
}

// shrinkSize returns max(1, ceil(n*f)). The epsilon absorbs float error so
// that, for example, 30*0.1 yields 3 rather than 4.
func shrinkSize(n int, f float64) int {
	s := int(math.Ceil(float64(n)*f - 1e-9))
	if s < 1 {
		return 1
	}
	if s >= n {
		return n - 1
	}
	return s
}

// nextTarget estimates how many rows the next batch can hold before the
// output budget runs out, from the output cost per row just observed.
func nextTarget(outputTokens, batchRows, maxOutput, limit int) int {
	if outputTokens <= 0 || batchRows <= 0 {
		return limit
	}
	perRow := float64(outputTokens) / float64(batchRows)
	t := int(math.Floor(float64(maxOutput) / perRow))
	if t < 1 {
		return 1
	}
	if t > limit {
		return limit
	}
	return t
}
