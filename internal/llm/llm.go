// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package llm provides a provider-agnostic LLM client interface and the
// transports used by llmagg to reach hosted models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Provider abstracts an LLM API behind a single synchronous completion method.
type Provider interface {
	// Complete sends a prompt to the LLM and returns the response.
	// Implementations must respect context cancellation and deadlines, and
	// must report truncated output as ErrOutputBudgetExceeded.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single completion request.
type Request struct {
	// Prompt is the user message to send.
	Prompt string

	// Model overrides the provider's default model. If empty, the provider
	// uses its configured default.
	Model string

	// MaxTokens limits the response length. If zero, the provider uses its
	// own default.
	MaxTokens int

	// Temperature controls randomness. If nil, the provider uses its default.
	Temperature *float64

	// SystemPrompt sets the system instruction for the completion.
	SystemPrompt string

	// JSON asks providers that support it to constrain output to JSON.
	JSON bool
}

// Response holds the result of a completion call.
type Response struct {
	// Content is the text returned by the model.
	Content string

	// Model is the model that actually served the request (may differ from
	// the requested model if the provider remapped it).
	Model string

	// StopReason is the provider's reason for ending generation, verbatim.
	StopReason string

	// Usage reports token consumption.
	Usage Usage
}

// Usage tracks input and output token counts for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Errors reported by providers. Callers match them with errors.Is; the
// wrapped message carries the provider's own wording.
var (
	// ErrOutputBudgetExceeded means the model stopped because it reached the
	// output token limit, so the reply is truncated.
	ErrOutputBudgetExceeded = errors.New("llm: output exceeded max output tokens")

	// ErrRefusal means the model declined to answer.
	ErrRefusal = errors.New("llm: request refused by model")

	// ErrContentFiltered means an upstream safety system blocked the
	// request or the response.
	ErrContentFiltered = errors.New("llm: content filtered")

	// ErrUnknownProvider is returned by New for unregistered provider names.
	ErrUnknownProvider = errors.New("llm: unknown provider")

	// ErrEmbeddingsUnsupported means the provider has no embedding API.
	ErrEmbeddingsUnsupported = errors.New("llm: provider does not support embeddings")
)

// Embedder turns texts into vectors. Implementations return exactly one
// vector per text, in order.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// AsEmbedder returns p's embedding API, or ErrEmbeddingsUnsupported.
func AsEmbedder(p Provider) (Embedder, error) {
	e, ok := p.(Embedder)
	if !ok {
		return nil, fmt.Errorf("%w (%T)", ErrEmbeddingsUnsupported, p)
	}
	return e, nil
}

// Factory constructs a provider whose default model is model.
type Factory func(ctx context.Context, model string) (Provider, error)

var factories = map[string]Factory{
	"anthropic": func(_ context.Context, model string) (Provider, error) {
		return NewAnthropicProvider(WithModel(model))
	},
	"gemini": func(ctx context.Context, model string) (Provider, error) {
		return NewGeminiProvider(ctx, WithGeminiModel(model))
	},
}

// New builds the provider registered under name, configured from the
// environment.
func New(ctx context.Context, name, model string) (Provider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownProvider, name, Providers())
	}
	return f(ctx, model)
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
