package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/rowio"
	"github.com/davetashner/llmagg/internal/scalar"
)

// defaultEmbedModel is the catalog entry embed uses without --model.
const defaultEmbedModel = "gemini-embedding-001"

// Embed command flags.
var (
	embedModel       string
	embedProvider    string
	embedCatalog     string
	embedInputFormat string
	embedOutput      string
)

var embedCmd = &cobra.Command{
	Use:   "embed [file...]",
	Short: "Embed each row with an embedding model",
	Long: `Embed each input row and write one JSON line per row:

  {"row": {...}, "embedding": [0.013, -0.094, ...]}

A row's text is its values in field order, separated by spaces. Rows whose
text does not fit the model's context window are rejected before any call
is made. The model must come from a provider with an embedding API.

Examples:
  llmagg embed docs.jsonl > vectors.jsonl
  llmagg embed -m my-embedder --input-format csv < docs.csv`,
	RunE: runEmbed,
}

func init() {
	f := embedCmd.Flags()
	f.StringVarP(&embedModel, "model", "m", "", "catalog model name (default "+defaultEmbedModel+")")
	f.StringVar(&embedProvider, "provider", "", "restrict the model lookup to this provider")
	f.StringVar(&embedCatalog, "catalog", "", "catalog database (default from config)")
	f.StringVar(&embedInputFormat, "input-format", "", "input format: jsonl, json or csv (default: detect)")
	f.StringVarP(&embedOutput, "output", "o", "", "write vectors to this file instead of stdout")
}

func runEmbed(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()

	rows, err := readAllRows(cmd, files, embedInputFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	cat, err := openConfiguredCatalog(cmd, embedCatalog)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	defer func() { _ = cat.Close() }()

	name := embedModel
	if name == "" {
		name = defaultEmbedModel
	}
	model, err := cat.Lookup(ctx, name, embedProvider)
	if err != nil {
		return runFailure(err)
	}

	factory := newProvider
	if factory == nil {
		factory = llm.New
	}
	provider, err := factory(ctx, model.Provider, model.APIModel())
	if err != nil {
		return exitError(ExitModelError, "llmagg: provider %s: %w", model.Provider, err)
	}
	embedder, err := llm.AsEmbedder(provider)
	if err != nil {
		return runFailure(err)
	}

	vectors, err := scalar.Embed(ctx, embedder, rows, scalar.EmbedOptions{
		Model:         model.APIModel(),
		ContextWindow: model.ContextWindow,
	})
	if err != nil {
		return runFailure(err)
	}
	slog.Debug("embedded rows", "model", model.Name, "rows", len(vectors))

	w, closeOut, err := openOutput(cmd, embedOutput)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	defer closeOut()

	enc := json.NewEncoder(w)
	for _, v := range vectors {
		if err := enc.Encode(v); err != nil {
			return exitError(ExitModelError, "llmagg: write vectors: %w", err)
		}
	}
	return nil
}

// readAllRows reads every file (stdin when none) into one row slice.
func readAllRows(cmd *cobra.Command, files []string, format string) ([]batch.Row, error) {
	inputFormat, err := rowio.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	partitions, err := readInputs(cmd, files, inputFormat)
	if err != nil {
		return nil, err
	}
	var rows []batch.Row
	for _, p := range partitions {
		rows = append(rows, p...)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no input rows")
	}
	return rows, nil
}
