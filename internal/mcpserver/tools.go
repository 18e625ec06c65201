// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/davetashner/llmagg/internal/aggregate"
	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/config"
	"github.com/davetashner/llmagg/internal/output"
	"github.com/davetashner/llmagg/internal/pipeline"
	"github.com/davetashner/llmagg/internal/rowio"
)

// AggregateInput is the input schema for the llmagg aggregate MCP tool.
type AggregateInput struct {
	Function    string `json:"function" jsonschema:"Aggregate function: max, min, reduce, rerank, complete or filter"`
	Prompt      string `json:"prompt,omitempty" jsonschema:"Instruction given to the model, e.g. the selection criterion or the summary to produce"`
	PromptName  string `json:"prompt_name,omitempty" jsonschema:"Name of a stored prompt to use instead of prompt"`
	PromptVer   int    `json:"prompt_version,omitempty" jsonschema:"Stored prompt version (default: latest)"`
	Rows        string `json:"rows,omitempty" jsonschema:"Inline input rows as a JSON array of objects or as JSON Lines"`
	Files       string `json:"files,omitempty" jsonschema:"Comma-separated input files (jsonl, json or csv), read in order after inline rows"`
	InputFormat string `json:"input_format,omitempty" jsonschema:"Input format: jsonl, json or csv (default: detect)"`
	GroupBy     string `json:"group_by,omitempty" jsonschema:"Row field to group by; one result per distinct value"`
	Model       string `json:"model,omitempty" jsonschema:"Catalog model name (default: from config, else default)"`
	Provider    string `json:"provider,omitempty" jsonschema:"Restrict the model lookup to this provider"`
	Format      string `json:"format,omitempty" jsonschema:"Output format: json, jsonl or markdown (default: json)"`
	Dir         string `json:"dir,omitempty" jsonschema:"Directory whose .llmagg.yaml applies (defaults to current directory)"`
}

// FunctionsInput is the input schema for the llmagg functions MCP tool.
type FunctionsInput struct{}

// ModelsInput is the input schema for the llmagg models MCP tool.
type ModelsInput struct {
	Provider string `json:"provider,omitempty" jsonschema:"Only list models served by this provider"`
}

// FunctionInfo describes one registered aggregate function.
type FunctionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// boolPtr returns a pointer to a bool.
func boolPtr(b bool) *bool { return &b }

type handlers struct {
	deps Deps
}

// registerTools adds all llmagg tools to the MCP server.
func registerTools(server *mcp.Server, deps Deps) {
	h := &handlers{deps: deps}

	mcp.AddTool(server, &mcp.Tool{
		Name: "aggregate",
		Description: "Run an LLM-backed aggregate function over rows: pick the best or worst row, " +
			"summarize rows into one value, rerank rows, or complete or filter each row. " +
			"Rows are packed into token-budgeted model calls.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(true),
		},
	}, h.handleAggregate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "functions",
		Description: "List the available aggregate functions.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, h.handleFunctions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "models",
		Description: "List the models in the catalog with their context window and output limits.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, h.handleModels)
}

func (h *handlers) handleAggregate(ctx context.Context, _ *mcp.CallToolRequest, input AggregateInput) (*mcp.CallToolResult, any, error) {
	dir, err := ResolveDir(input.Dir)
	if err != nil {
		return nil, nil, err
	}
	if input.Prompt != "" && input.PromptName != "" {
		return nil, nil, fmt.Errorf("prompt and prompt_name are mutually exclusive")
	}

	format := "json"
	if input.Format != "" {
		format = input.Format
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return nil, nil, err
	}

	inputFormat, err := rowio.ParseFormat(input.InputFormat)
	if err != nil {
		return nil, nil, err
	}
	partitions, err := readPartitions(input, inputFormat)
	if err != nil {
		return nil, nil, err
	}

	fileCfg, err := config.LoadLayered(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	runCfg := config.Merge(fileCfg, config.RunConfig{
		Function: input.Function,
		Prompt:   input.Prompt,
		Model:    input.Model,
		Provider: input.Provider,
		GroupBy:  input.GroupBy,
	})

	cat, err := h.openCatalog(ctx, runCfg.Catalog)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = cat.Close() }()

	if input.PromptName != "" {
		stored, err := cat.Prompt(ctx, input.PromptName, input.PromptVer)
		if err != nil {
			return nil, nil, err
		}
		runCfg.Prompt = stored.Text
	}

	p, err := pipeline.New(ctx, runCfg, pipeline.Options{
		Catalog:     cat,
		NewProvider: h.deps.NewProvider,
		Logger:      h.logger(),
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := p.Run(ctx, partitions)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate failed: %w", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(result.Results, result.Metadata, &buf); err != nil {
		return nil, nil, fmt.Errorf("formatting failed: %w", err)
	}
	return textResult(buf.String()), nil, nil
}

func (h *handlers) handleFunctions(_ context.Context, _ *mcp.CallToolRequest, _ FunctionsInput) (*mcp.CallToolResult, any, error) {
	names := aggregate.List()
	infos := make([]FunctionInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, FunctionInfo{Name: name, Description: aggregate.Get(name).Description()})
	}
	return jsonResult(infos)
}

func (h *handlers) handleModels(ctx context.Context, _ *mcp.CallToolRequest, input ModelsInput) (*mcp.CallToolResult, any, error) {
	cfg, err := config.LoadLayered(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cat, err := h.openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = cat.Close() }()

	models, err := cat.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if input.Provider != "" {
		kept := models[:0]
		for _, m := range models {
			if m.Provider == input.Provider {
				kept = append(kept, m)
			}
		}
		models = kept
	}
	return jsonResult(models)
}

// openCatalog opens the server's catalog override, else path, else the
// default location.
func (h *handlers) openCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if h.deps.CatalogPath != "" {
		path = h.deps.CatalogPath
	}
	if path == "" {
		var err error
		if path, err = catalog.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return catalog.Open(ctx, path)
}

func (h *handlers) logger() *slog.Logger {
	if h.deps.Logger != nil {
		return h.deps.Logger
	}
	return slog.Default()
}

// readPartitions returns the inline rows followed by each file's rows, one
// partition per source.
func readPartitions(input AggregateInput, format rowio.Format) ([][]batch.Row, error) {
	var partitions [][]batch.Row
	if strings.TrimSpace(input.Rows) != "" {
		rows, err := rowio.Read(strings.NewReader(input.Rows), format)
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		partitions = append(partitions, rows)
	}

	for _, name := range splitAndTrim(input.Files) {
		path, err := ResolveFile(name)
		if err != nil {
			return nil, err
		}
		rows, err := rowio.ReadFile(path, format, nil)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, rows)
	}

	if len(partitions) == 0 {
		return nil, errors.New("no input: give rows or files")
	}
	return partitions, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace from each element.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
