// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/prompt"
)

// Invoker sends a rendered prompt to a model and returns its JSON reply.
// Implementations report output truncation as llm.ErrOutputBudgetExceeded.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, budget Budget) (json.RawMessage, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, prompt string, budget Budget) (json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string, budget Budget) (json.RawMessage, error) {
	return f(ctx, prompt, budget)
}

// Overheader is implemented by invokers that send the same text alongside
// every prompt, such as a system prompt. The engine charges that text to
// the fixed overhead of each batch.
type Overheader interface {
	Overhead() string
}

const systemPrompt = "You are a data processing step inside a query engine. " +
	"Follow the instructions exactly and respond with a single valid JSON object and nothing else."

// ProviderInvoker invokes an llm.Provider, capping the reply at the budget's
// output limit and extracting the JSON document from the reply text.
type ProviderInvoker struct {
	Provider    llm.Provider
	Model       string
	Temperature *float64
}

var (
	_ Invoker    = (*ProviderInvoker)(nil)
	_ Overheader = (*ProviderInvoker)(nil)
)

// Overhead returns the system prompt sent with every request.
func (p *ProviderInvoker) Overhead() string { return systemPrompt }

// Invoke implements Invoker.
func (p *ProviderInvoker) Invoke(ctx context.Context, text string, budget Budget) (json.RawMessage, error) {
	resp, err := p.Provider.Complete(ctx, llm.Request{
		Prompt:       text,
		Model:        p.Model,
		MaxTokens:    budget.MaxOutputTokens,
		Temperature:  p.Temperature,
		SystemPrompt: systemPrompt,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	raw, err := prompt.ExtractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return raw, nil
}
