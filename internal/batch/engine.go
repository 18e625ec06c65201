// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package batch packs rows into token-budgeted model invocations and runs the
// batch algorithms built on them: tournament selection, map-reduce
// summarization, sliding-window ranking and row-wise completion.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/davetashner/llmagg/internal/prompt"
	"github.com/davetashner/llmagg/internal/tokens"
)

// DefaultShrinkFactor is the fraction a batch is cut to after an output
// overflow.
const DefaultShrinkFactor = 0.1

// Engine runs batch operations. It holds no per-invocation state and is safe
// for concurrent use.
type Engine struct {
	counter  tokens.Counter
	renderer *prompt.Renderer
	shrink   float64
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCounter sets the token counter used for every budget decision.
func WithCounter(c tokens.Counter) Option {
	return func(e *Engine) {
		if c != nil {
			e.counter = c
		}
	}
}

// WithRenderer sets the prompt renderer.
func WithRenderer(r *prompt.Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithShrinkFactor sets the fraction applied to a batch after an output
// overflow. Values outside (0, 1) keep the default.
func WithShrinkFactor(f float64) Option {
	return func(e *Engine) {
		if f > 0 && f < 1 {
			e.shrink = f
		}
	}
}

// WithLogger sets the logger for round and retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine. By default it counts tokens with tokens.Words.
func New(opts ...Option) *Engine {
	e := &Engine{
		counter:  tokens.Words,
		renderer: prompt.NewRenderer(),
		shrink:   DefaultShrinkFactor,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Call is the per-invocation context shared by every batch of one operation.
type Call struct {
	// Instruction is the user's prompt.
	Instruction string
	// Budget is the target model's token allowance.
	Budget Budget
	// Invoker reaches the model.
	Invoker Invoker
}

// plan is the budget arithmetic for one operation, computed once.
type plan struct {
	kind      prompt.Kind
	fixed     int
	available int
	packer    Packer
}

func (e *Engine) plan(call Call, kind prompt.Kind) (plan, error) {
	if call.Invoker == nil {
		return plan{}, errors.New("batch: call has no invoker")
	}
	if err := call.Budget.Validate(); err != nil {
		return plan{}, err
	}

	tmpl, err := e.renderer.Template(kind)
	if err != nil {
		return plan{}, err
	}

	fixed := e.counter(tmpl) + e.counter(call.Instruction)
	if o, ok := call.Invoker.(Overheader); ok {
		fixed += e.counter(o.Overhead())
	}
	if fixed > call.Budget.ContextWindow {
		return plan{}, fmt.Errorf("%w: %s needs %d tokens, context window is %d",
			ErrFixedOverheadExceeded, kind, fixed, call.Budget.ContextWindow)
	}

	return plan{
		kind:      kind,
		fixed:     fixed,
		available: call.Budget.ContextWindow - fixed,
		packer:    NewPacker(e.counter),
	}, nil
}

// cost prices an arbitrary item, such as a carried summary, the same way the
// packer prices rows.
func (e *Engine) cost(content any) int {
	return e.counter(prompt.Line(prompt.Item{Content: content}))
}

func (e *Engine) invoke(ctx context.Context, call Call, p plan, items []prompt.Item) (json.RawMessage, error) {
	text, err := e.renderer.Render(p.kind, call.Instruction, items)
	if err != nil {
		return nil, err
	}
	return call.Invoker.Invoke(ctx, text, call.Budget)
}

func itemsOf(contents []any) []prompt.Item {
	items := make([]prompt.Item, len(contents))
	for i, c := range contents {
		items[i] = prompt.Item{ID: i, Content: c}
	}
	return items
}
