// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/config"
	"github.com/davetashner/llmagg/internal/llm"
)

var testModel = catalog.Model{Name: "test", Provider: "mock", ContextWindow: 10000, MaxOutputTokens: 200}

func newTestPipeline(t *testing.T, cfg config.RunConfig, mock *llm.MockProvider) *Pipeline {
	t.Helper()
	if cfg.Prompt == "" {
		cfg.Prompt = "summarize"
	}
	inv := &batch.ProviderInvoker{Provider: mock, Model: "mock-1"}
	p, err := NewWithInvoker(cfg, testModel, inv, nil)
	require.NoError(t, err)
	return p
}

func reply(content string) *llm.MockProvider {
	return llm.NewMockProvider(llm.MockResponse{Content: content})
}

func TestRun_UngroupedCombinesPartitionsInOrder(t *testing.T) {
	mock := reply(`{"output":"sum"}`)
	p := newTestPipeline(t, config.RunConfig{Function: "reduce"}, mock)

	res, err := p.Run(context.Background(), [][]batch.Row{
		{batch.NewRow("v", "alpha"), batch.NewRow("v", "bravo")},
		{},
		{batch.NewRow("v", "charlie")},
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Results[0].Group)
	assert.Equal(t, 3, res.Results[0].Rows)
	assert.JSONEq(t, `"sum"`, string(res.Results[0].Value))
	assert.Equal(t, 3, res.Metadata.TotalRows)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Prompt
	a, b, c := strings.Index(prompt, "alpha"), strings.Index(prompt, "bravo"), strings.Index(prompt, "charlie")
	require.True(t, a >= 0 && b >= 0 && c >= 0, prompt)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestRun_GroupsFollowFirstAppearance(t *testing.T) {
	mock := reply(`{"selected":0}`)
	p := newTestPipeline(t, config.RunConfig{Function: "max", GroupBy: "team", Concurrency: 2}, mock)

	res, err := p.Run(context.Background(), [][]batch.Row{
		{batch.NewRow("team", "x", "v", "one"), batch.NewRow("team", "y", "v", "two")},
		{batch.NewRow("team", "x", "v", "three")},
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "x", res.Results[0].Group)
	assert.Equal(t, 2, res.Results[0].Rows)
	assert.JSONEq(t, `{"team":"x","v":"one"}`, string(res.Results[0].Value))

	assert.Equal(t, "y", res.Results[1].Group)
	assert.Equal(t, 1, res.Results[1].Rows)
	assert.JSONEq(t, `{"team":"y","v":"two"}`, string(res.Results[1].Value))

	// The single-row group needs no model call.
	assert.Len(t, mock.Calls(), 1)
	assert.Equal(t, "team", res.Metadata.GroupBy)
}

func TestRun_GroupsKeepKeyTypeAcrossPartitions(t *testing.T) {
	mock := reply(`{"selected":1}`)
	p := newTestPipeline(t, config.RunConfig{Function: "max", GroupBy: "team", Concurrency: 1}, mock)

	res, err := p.Run(context.Background(), [][]batch.Row{
		{batch.NewRow("team", "1", "v", "a"), batch.NewRow("team", 1, "v", "b")},
		{batch.NewRow("team", 1, "v", "c"), batch.NewRow("team", "1", "v", "d")},
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, 2, res.Results[0].Rows)
	assert.JSONEq(t, `{"team":"1","v":"d"}`, string(res.Results[0].Value))
	assert.Equal(t, 2, res.Results[1].Rows)
	assert.JSONEq(t, `{"team":1,"v":"c"}`, string(res.Results[1].Value))
}

func TestRun_EmptyInput(t *testing.T) {
	mock := reply(`{}`)

	p := newTestPipeline(t, config.RunConfig{Function: "rerank"}, mock)
	res, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.JSONEq(t, `[]`, string(res.Results[0].Value))
	assert.Equal(t, 0, res.Results[0].Rows)

	p = newTestPipeline(t, config.RunConfig{Function: "max"}, mock)
	res, err = p.Run(context.Background(), [][]batch.Row{{}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.JSONEq(t, `null`, string(res.Results[0].Value))

	p = newTestPipeline(t, config.RunConfig{Function: "max", GroupBy: "team"}, mock)
	res, err = p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	assert.Empty(t, mock.Calls())
}

func TestRun_GroupFailureDiscardsResults(t *testing.T) {
	boom := errors.New("upstream unavailable")
	mock := llm.NewMockProviderFunc(func(req llm.Request) llm.MockResponse {
		if strings.Contains(req.Prompt, `"team":"y"`) {
			return llm.MockResponse{Err: boom}
		}
		return llm.MockResponse{Content: `{"output":"ok"}`}
	})
	p := newTestPipeline(t, config.RunConfig{Function: "reduce", GroupBy: "team", Concurrency: 1}, mock)

	res, err := p.Run(context.Background(), [][]batch.Row{{
		batch.NewRow("team", "x", "v", "1"),
		batch.NewRow("team", "x", "v", "2"),
		batch.NewRow("team", "y", "v", "3"),
		batch.NewRow("team", "y", "v", "4"),
	}})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `group "y"`)
}

func TestRun_ProtocolViolationIsFatal(t *testing.T) {
	p := newTestPipeline(t, config.RunConfig{Function: "max"}, reply(`{"selected":"0"}`))

	_, err := p.Run(context.Background(), [][]batch.Row{{batch.NewRow("v", "a"), batch.NewRow("v", "b")}})
	assert.ErrorIs(t, err, batch.ErrProtocolViolation)
}

func TestRun_Metadata(t *testing.T) {
	p := newTestPipeline(t, config.RunConfig{Function: "reduce"}, reply(`{"output":1}`))
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	p.timeNow = func() time.Time { return fixed }

	res, err := p.Run(context.Background(), [][]batch.Row{{batch.NewRow("v", "a")}})
	require.NoError(t, err)

	meta := res.Metadata
	assert.Equal(t, p.RunID(), meta.RunID)
	_, err = uuid.Parse(meta.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "reduce", meta.Function)
	assert.Equal(t, "test", meta.Model)
	assert.Equal(t, "mock", meta.Provider)
	assert.Equal(t, "2026-03-04T05:06:07Z", meta.GeneratedAt)
	assert.Equal(t, "reduce", p.Function().Name())
}

func TestNewWithInvoker_Validation(t *testing.T) {
	inv := batch.InvokerFunc(nil)

	_, err := NewWithInvoker(config.RunConfig{Function: "median", Prompt: "p"}, testModel, inv, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown function "median"`)

	_, err = NewWithInvoker(config.RunConfig{Prompt: "p"}, testModel, inv, nil)
	assert.ErrorContains(t, err, "no function given")

	_, err = NewWithInvoker(config.RunConfig{Function: "max"}, testModel, inv, nil)
	assert.ErrorIs(t, err, ErrNoPrompt)

	_, err = NewWithInvoker(config.RunConfig{Function: "max", Prompt: "p", TokenCounter: "bpe"}, testModel, inv, nil)
	assert.ErrorContains(t, err, "unknown token counter")

	_, err = NewWithInvoker(config.RunConfig{Function: "max", Prompt: "p"}, catalog.Model{Name: "broken"}, inv, nil)
	assert.ErrorContains(t, err, "model broken")
}

type recordingFactory struct {
	mu       sync.Mutex
	provider string
	model    string
	calls    int
	mock     *llm.MockProvider
	err      error
}

func (f *recordingFactory) build(_ context.Context, provider, model string) (llm.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.provider, f.model = provider, model
	if f.err != nil {
		return nil, f.err
	}
	return f.mock, nil
}

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(context.Background(), catalog.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestNew_ResolvesModelFromCatalog(t *testing.T) {
	ctx := context.Background()
	cat := openCatalog(t)
	require.NoError(t, cat.Upsert(ctx, catalog.Model{
		Name: "tiny", Provider: "gemini", ModelID: "gemini-2.5-flash-lite", ContextWindow: 4000, MaxOutputTokens: 50,
	}))

	f := &recordingFactory{mock: reply(`{"output":"done"}`)}
	p, err := New(ctx, config.RunConfig{Function: "reduce", Prompt: "sum", Model: "tiny"},
		Options{Catalog: cat, NewProvider: f.build})
	require.NoError(t, err)
	assert.Equal(t, "gemini", f.provider)
	assert.Equal(t, "gemini-2.5-flash-lite", f.model)

	res, err := p.Run(ctx, [][]batch.Row{{batch.NewRow("v", "a"), batch.NewRow("v", "b")}})
	require.NoError(t, err)
	assert.JSONEq(t, `"done"`, string(res.Results[0].Value))

	calls := f.mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 50, calls[0].MaxTokens)
	assert.Equal(t, "gemini-2.5-flash-lite", calls[0].Model)
}

func TestNew_DefaultModel(t *testing.T) {
	f := &recordingFactory{mock: reply(`{}`)}
	p, err := New(context.Background(), config.RunConfig{Function: "max", Prompt: "p"},
		Options{Catalog: openCatalog(t), NewProvider: f.build})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", f.provider)
	assert.Equal(t, "default", p.model.Name)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	cat := openCatalog(t)

	f := &recordingFactory{mock: reply(`{}`)}
	_, err := New(ctx, config.RunConfig{Function: "max", Prompt: "p", Model: "missing"},
		Options{Catalog: cat, NewProvider: f.build})
	assert.ErrorIs(t, err, catalog.ErrModelNotFound)
	assert.Zero(t, f.calls, "no provider for an unknown model")

	_, err = New(ctx, config.RunConfig{Function: "median", Prompt: "p"}, Options{Catalog: cat, NewProvider: f.build})
	assert.ErrorContains(t, err, "unknown function")
	assert.Zero(t, f.calls)

	_, err = New(ctx, config.RunConfig{Function: "max", Prompt: "p"}, Options{NewProvider: f.build})
	assert.ErrorContains(t, err, "no model catalog")

	noKey := errors.New("no api key")
	f.err = noKey
	_, err = New(ctx, config.RunConfig{Function: "max", Prompt: "p"}, Options{Catalog: cat, NewProvider: f.build})
	assert.ErrorIs(t, err, noKey)
	assert.Contains(t, err.Error(), "provider anthropic")
}
