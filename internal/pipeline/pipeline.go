// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package pipeline runs one aggregate function over partitioned row input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/davetashner/llmagg/internal/aggregate"
	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/config"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/output"
	"github.com/davetashner/llmagg/internal/rowio"
	"github.com/davetashner/llmagg/internal/tokens"
)

// ErrNoPrompt is returned when a run has no instruction for the model.
var ErrNoPrompt = errors.New("pipeline: a prompt is required")

// ProviderFactory builds the provider serving model. llm.New is the default.
type ProviderFactory func(ctx context.Context, provider, model string) (llm.Provider, error)

// Options carries the dependencies New resolves a run against.
type Options struct {
	// Catalog resolves the configured model name. Required.
	Catalog *catalog.Catalog
	// NewProvider overrides how providers are built.
	NewProvider ProviderFactory
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Pipeline finalizes one aggregate function per group of input rows.
type Pipeline struct {
	cfg     config.RunConfig
	fn      aggregate.Function
	model   catalog.Model
	call    batch.Call
	engine  []batch.Option
	runID   string
	logger  *slog.Logger
	timeNow func() time.Time
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	Results  []output.Result
	Metadata output.Metadata
	Duration time.Duration
}

// New resolves the function, model and provider named by cfg. Unset fields
// take their defaults.
func New(ctx context.Context, cfg config.RunConfig, opts Options) (*Pipeline, error) {
	cfg = cfg.WithDefaults()
	if _, err := resolveFunction(cfg.Function); err != nil {
		return nil, err
	}
	if opts.Catalog == nil {
		return nil, errors.New("pipeline: no model catalog")
	}

	model, err := opts.Catalog.Lookup(ctx, cfg.Model, cfg.Provider)
	if err != nil {
		return nil, err
	}

	newProvider := opts.NewProvider
	if newProvider == nil {
		newProvider = llm.New
	}
	provider, err := newProvider(ctx, model.Provider, model.APIModel())
	if err != nil {
		return nil, fmt.Errorf("pipeline: provider %s: %w", model.Provider, err)
	}

	inv := &batch.ProviderInvoker{
		Provider:    provider,
		Model:       model.APIModel(),
		Temperature: cfg.Temperature,
	}
	return NewWithInvoker(cfg, model, inv, opts.Logger)
}

// NewWithInvoker builds a Pipeline that sends every model call to inv,
// bypassing the catalog and provider registry.
func NewWithInvoker(cfg config.RunConfig, model catalog.Model, inv batch.Invoker, logger *slog.Logger) (*Pipeline, error) {
	cfg = cfg.WithDefaults()
	fn, err := resolveFunction(cfg.Function)
	if err != nil {
		return nil, err
	}
	if cfg.Prompt == "" {
		return nil, ErrNoPrompt
	}
	counter, err := tokens.ByName(cfg.TokenCounter)
	if err != nil {
		return nil, err
	}
	budget := model.Budget()
	if err := budget.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: model %s: %w", model.Name, err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()

	return &Pipeline{
		cfg:   cfg,
		fn:    fn,
		model: model,
		call: batch.Call{
			Instruction: cfg.Prompt,
			Budget:      budget,
			Invoker:     inv,
		},
		engine: []batch.Option{
			batch.WithCounter(counter),
			batch.WithShrinkFactor(cfg.ShrinkFactor),
		},
		runID:   runID,
		logger:  logger.With("run_id", runID, "function", fn.Name()),
		timeNow: time.Now,
	}, nil
}

// RunID identifies this run in logs and output metadata.
func (p *Pipeline) RunID() string { return p.runID }

// Function returns the resolved aggregate function.
func (p *Pipeline) Function() aggregate.Function { return p.fn }

// Run groups every partition, combines the partial states in partition order
// and finalizes the groups concurrently. Results follow the order in which
// group keys first appear. Any group failure cancels the others and the run
// returns no results.
func (p *Pipeline) Run(ctx context.Context, partitions [][]batch.Row) (*RunResult, error) {
	start := p.timeNow()
	groups, total := p.partition(partitions)
	p.logger.Info("starting run",
		"model", p.model.Name, "provider", p.model.Provider,
		"rows", total, "groups", len(groups))

	results := make([]output.Result, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, grp := range groups {
		g.Go(func() error {
			logger := p.logger
			if p.cfg.GroupBy != "" {
				logger = logger.With("group", grp.key)
			}
			eng := batch.New(append([]batch.Option{batch.WithLogger(logger)}, p.engine...)...)

			n := grp.state.Len()
			groupStart := p.timeNow()
			value, err := grp.state.Finalize(gctx, p.fn, eng, p.call)
			if err != nil {
				if p.cfg.GroupBy != "" {
					return fmt.Errorf("group %q: %w", grp.key, err)
				}
				return err
			}
			logger.Debug("group finalized", "rows", n, "duration", time.Since(groupStart))

			results[i] = output.Result{Group: grp.key, Rows: n, Value: value}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	p.logger.Info("run complete", "groups", len(results), "duration", duration)

	return &RunResult{
		Results: results,
		Metadata: output.Metadata{
			RunID:       p.runID,
			Function:    p.fn.Name(),
			Model:       p.model.Name,
			Provider:    p.model.Provider,
			GroupBy:     p.cfg.GroupBy,
			TotalRows:   total,
			GeneratedAt: start.UTC().Format(time.RFC3339),
		},
		Duration: duration,
	}, nil
}

type group struct {
	key   string
	state *aggregate.State
}

// partition builds one partial state per group and partition, then combines
// them into a single state per group in partition order.
func (p *Pipeline) partition(partitions [][]batch.Row) ([]*group, int) {
	index := make(map[string]*group)
	var order []*group
	total := 0

	for _, rows := range partitions {
		total += len(rows)
		if len(rows) == 0 {
			continue
		}
		for _, rg := range rowio.GroupBy(rows, p.cfg.GroupBy) {
			partial := &aggregate.State{}
			partial.Update(rg.Rows...)

			g, ok := index[rg.ID]
			if !ok {
				g = &group{key: rg.Key, state: &aggregate.State{}}
				index[rg.ID] = g
				order = append(order, g)
			}
			g.state.Combine(partial)
		}
	}

	// Ungrouped input always yields exactly one result, even when empty.
	if len(order) == 0 && p.cfg.GroupBy == "" {
		order = append(order, &group{state: &aggregate.State{}})
	}
	return order, total
}

func resolveFunction(name string) (aggregate.Function, error) {
	if name == "" {
		return nil, fmt.Errorf("pipeline: no function given (available: %v)", aggregate.List())
	}
	fn := aggregate.Get(name)
	if fn == nil {
		return nil, fmt.Errorf("pipeline: unknown function %q (available: %v)", name, aggregate.List())
	}
	return fn, nil
}
