package main

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/mcpserver"
)

var mcpCatalog string

// mcpCmd is the parent command for MCP-related subcommands.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server commands",
	Long:  "Commands for running llmagg as an MCP server, exposing its aggregate functions to AI agents.",
}

// mcpServeCmd runs the MCP server over stdio.
var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Start an MCP server on stdin/stdout, exposing llmagg's tools:
  - aggregate: Run an aggregate function over inline rows or files
  - functions: List the available aggregate functions
  - models:    List the model catalog

The server communicates using the Model Context Protocol (MCP) over stdio
transport. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return mcpserver.Run(cmd.Context(), Version, mcpserver.Deps{
			CatalogPath: mcpCatalog,
			NewProvider: newProvider,
			Logger:      slog.Default(),
		}, &mcp.StdioTransport{})
	},
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpCatalog, "catalog", "", "model catalog database (default from config)")
	mcpCmd.AddCommand(mcpServeCmd)
}
