// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package scalar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/davetashner/llmagg/internal/batch"
)

// ErrNoFields is returned by Fuse when no score fields are named.
var ErrNoFields = errors.New("scalar: at least one field is required")

// Fuse combines the score fields of every row into one score per row.
// Each field is min-max normalized across rows (a field whose values are
// all equal normalizes to 0). A row's result is the original value of the
// field with the highest normalized score; ties go to the earlier field, as
// does a row whose scores all normalize to 0.
//
// Values must be JSON numbers or strings holding one, as CSV input yields.
func Fuse(rows []batch.Row, fields []string) ([]json.RawMessage, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	scores := make([][]float64, len(fields))
	raws := make([][]json.RawMessage, len(fields))
	for j, field := range fields {
		scores[j] = make([]float64, len(rows))
		raws[j] = make([]json.RawMessage, len(rows))
		for i, row := range rows {
			f, raw, err := number(row, field)
			if err != nil {
				return nil, fmt.Errorf("scalar: row %d: %w", i, err)
			}
			scores[j][i], raws[j][i] = f, raw
		}
		normalize(scores[j])
	}

	out := make([]json.RawMessage, len(rows))
	for i := range rows {
		best, bestScore := 0, 0.0
		for j := range fields {
			if scores[j][i] > bestScore {
				best, bestScore = j, scores[j][i]
			}
		}
		out[i] = raws[best][i]
	}
	return out, nil
}

// normalize rescales xs in place to [0, 1].
func normalize(xs []float64) {
	if len(xs) == 0 {
		return
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo, hi = min(lo, x), max(hi, x)
	}
	for i, x := range xs {
		if hi == lo {
			xs[i] = 0
			continue
		}
		xs[i] = (x - lo) / (hi - lo)
	}
}

// number reads field as a float and returns the JSON to report for it:
// the original literal for numbers, the parsed value for numeric strings.
func number(row batch.Row, field string) (float64, json.RawMessage, error) {
	raw, ok := row.Raw(field)
	if !ok {
		return 0, nil, fmt.Errorf("field %q is missing", field)
	}

	text := string(raw)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, nil, fmt.Errorf("field %q: %w", field, err)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("field %q is not a number: %q", field, s)
		}
		return f, json.RawMessage(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("field %q is not a number: %s", field, text)
	}
	return f, raw, nil
}
