// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/davetashner/llmagg/internal/pipeline"
)

// Deps are the server's external dependencies. The zero value uses the
// configured catalog and the real providers.
type Deps struct {
	// CatalogPath overrides the catalog location from config.
	CatalogPath string
	// NewProvider overrides how model providers are built.
	NewProvider pipeline.ProviderFactory
	Logger      *slog.Logger
}

// New creates a new MCP server with llmagg's tools registered.
func New(version string, deps Deps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "llmagg",
		Title:   "llmagg: LLM aggregate functions",
		Version: version,
	}, nil)

	registerTools(server, deps)
	return server
}

// Run creates an MCP server and runs it on the given transport.
// It blocks until the client disconnects or the context is cancelled.
func Run(ctx context.Context, version string, deps Deps, transport mcp.Transport) error {
	server := New(version, deps)
	return server.Run(ctx, transport)
}
