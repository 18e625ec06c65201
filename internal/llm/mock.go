// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"strings"
	"sync"
)

// MockResponse defines a canned response for the mock provider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider is a test double that returns pre-configured responses in
// sequence. After all responses are exhausted, it keeps returning the last one.
// When built with NewMockProviderFunc it computes each reply from the request
// instead. It records every request for later assertion.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	respond   func(Request) MockResponse
	calls     []Request
	idx       int
	embedded  [][]string
	embedErr  error
}

// Compile-time checks that MockProvider satisfies Provider and Embedder.
var (
	_ Provider = (*MockProvider)(nil)
	_ Embedder = (*MockProvider)(nil)
)

// NewMockProvider creates a mock that returns the given responses in order.
// If no responses are provided, Complete returns an empty Response.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{
		responses: responses,
	}
}

// NewMockProviderFunc creates a mock whose replies are produced by fn.
func NewMockProviderFunc(fn func(Request) MockResponse) *MockProvider {
	return &MockProvider{respond: fn}
}

// Complete returns the next canned response and records the request.
// It respects context cancellation.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	var r MockResponse
	switch {
	case m.respond != nil:
		r = m.respond(req)
	case len(m.responses) == 0:
		return &Response{Content: "", Model: "mock"}, nil
	default:
		r = m.responses[m.idx]
		if m.idx < len(m.responses)-1 {
			m.idx++
		}
	}

	if r.Err != nil {
		return nil, r.Err
	}

	return &Response{
		Content:    r.Content,
		Model:      "mock",
		StopReason: "end_turn",
		Usage:      Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

// Calls returns a copy of all requests received by this mock.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Embed returns, for each text, the vector [bytes, words] and records the
// batch. It fails with the error set by FailEmbeddings, if any.
func (m *MockProvider) Embed(ctx context.Context, _ string, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.embedded = append(m.embedded, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(len(strings.Fields(t)))}
	}
	return out, nil
}

// FailEmbeddings makes every later Embed call return err.
func (m *MockProvider) FailEmbeddings(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
}

// EmbedCalls returns a copy of the text batches passed to Embed.
func (m *MockProvider) EmbedCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, len(m.embedded))
	copy(out, m.embedded)
	return out
}

// Reset clears call history and resets the response index to zero.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
	m.embedded = nil
	m.idx = 0
}
