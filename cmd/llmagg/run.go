package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/aggregate"
	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/config"
	llmagglog "github.com/davetashner/llmagg/internal/log"
	"github.com/davetashner/llmagg/internal/output"
	"github.com/davetashner/llmagg/internal/pipeline"
	"github.com/davetashner/llmagg/internal/rowio"
)

// Run command flags.
var (
	runPrompt        string
	runPromptName    string
	runPromptVersion int
	runModel         string
	runProvider      string
	runGroupBy       string
	runCatalog       string
	runFormat        string
	runInputFormat   string
	runOutput        string
	runConcurrency   int
	runTemperature   float64
	runShrinkFactor  float64
	runTokenCounter  string
)

// newProvider builds model providers for run. Tests swap it for a mock.
var newProvider pipeline.ProviderFactory

// runCmd runs one aggregate function over the input rows.
var runCmd = &cobra.Command{
	Use:   "run <function> [file...]",
	Short: "Run an aggregate function over rows",
	Long: `Run an aggregate function over rows read from files, or from stdin when
no file (or "-") is given. Files are read in order and treated as successive
partitions of one input.

Input rows are JSON objects, as JSON Lines, a JSON array or CSV with a
header. The format is detected from the file extension or the content unless
--input-format is given.

Functions:
  max, min   the row that best (or least) satisfies the prompt
  reduce     one value summarizing all rows
  rerank     every row, most to least relevant
  complete   one answer per row
  filter     the rows the prompt's condition holds for

Examples:
  llmagg run max -p "most severe incident" incidents.jsonl
  llmagg run reduce -p "summarize the feedback" -g product feedback.csv
  cat docs.jsonl | llmagg run rerank -p "relevance to: vector databases"
  llmagg run max --prompt-name severity incidents.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAggregate,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runPrompt, "prompt", "p", "", "instruction for the model")
	f.StringVar(&runPromptName, "prompt-name", "", "use the stored prompt with this name (see \"llmagg prompts\")")
	f.IntVar(&runPromptVersion, "prompt-version", 0, "stored prompt version (default latest)")
	f.StringVarP(&runModel, "model", "m", "", "catalog model name (default from config, else \"default\")")
	f.StringVar(&runProvider, "provider", "", "restrict the model lookup to this provider")
	f.StringVarP(&runGroupBy, "group-by", "g", "", "row field to group by")
	f.StringVar(&runCatalog, "catalog", "", "model catalog database (default $XDG_DATA_HOME/llmagg/models.db)")
	f.StringVarP(&runFormat, "format", "f", "", fmt.Sprintf("output format: %s (default json)", strings.Join(output.Names(), ", ")))
	f.StringVar(&runInputFormat, "input-format", "", "input format: jsonl, json or csv (default: detect)")
	f.StringVarP(&runOutput, "output", "o", "", "write results to this file instead of stdout")
	f.IntVar(&runConcurrency, "concurrency", 0, "groups finalized in parallel (default 4)")
	f.Float64Var(&runTemperature, "temperature", 0, "sampling temperature (default: provider's)")
	f.Float64Var(&runShrinkFactor, "shrink-factor", 0, "batch shrink factor after an output overflow (default 0.1)")
	f.StringVar(&runTokenCounter, "token-counter", "", "token estimator: words, bytes or tiktoken (default words)")
	runCmd.MarkFlagsOneRequired("prompt", "prompt-name")
	runCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-name")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fnName, files := args[0], args[1:]

	if aggregate.Get(fnName) == nil {
		return exitError(ExitInvalidArgs, "llmagg: unknown function %q (available: %s)",
			fnName, strings.Join(aggregate.List(), ", "))
	}

	fileCfg, err := config.LoadLayered(".")
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	cliCfg := config.RunConfig{
		Function:     fnName,
		Prompt:       runPrompt,
		Model:        runModel,
		Provider:     runProvider,
		Catalog:      runCatalog,
		TokenCounter: runTokenCounter,
		OutputFormat: runFormat,
		InputFormat:  runInputFormat,
		GroupBy:      runGroupBy,
		Concurrency:  runConcurrency,
		ShrinkFactor: runShrinkFactor,
		LogFormat:    logFormat,
	}
	if cmd.Flags().Changed("temperature") {
		t := runTemperature
		cliCfg.Temperature = &t
	}
	runCfg := config.Merge(fileCfg, cliCfg).WithDefaults()
	if err := config.Validate(&config.Config{
		Provider:     runCfg.Provider,
		TokenCounter: runCfg.TokenCounter,
		OutputFormat: runCfg.OutputFormat,
		Concurrency:  runCfg.Concurrency,
		Temperature:  runCfg.Temperature,
		ShrinkFactor: runCfg.ShrinkFactor,
		LogFormat:    runCfg.LogFormat,
	}); err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	if logFormat == "" && runCfg.LogFormat != llmagglog.FormatText {
		llmagglog.Setup(cmd.ErrOrStderr(), verbose, quiet, runCfg.LogFormat)
	}

	formatter, err := output.GetFormatter(runCfg.OutputFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	inputFormat, err := rowio.ParseFormat(runCfg.InputFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	partitions, err := readInputs(cmd, files, inputFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	cat, err := openCatalog(cmd, runCfg.Catalog)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	defer func() { _ = cat.Close() }()

	if runPromptName != "" {
		stored, err := cat.Prompt(ctx, runPromptName, runPromptVersion)
		if err != nil {
			return exitError(ExitInvalidArgs, "llmagg: %w", err)
		}
		slog.Debug("using stored prompt", "name", stored.Name, "version", stored.Version)
		runCfg.Prompt = stored.Text
	}

	p, err := pipeline.New(ctx, runCfg, pipeline.Options{
		Catalog:     cat,
		NewProvider: newProvider,
		Logger:      slog.Default(),
	})
	if err != nil {
		return runFailure(err)
	}

	result, err := p.Run(ctx, partitions)
	if err != nil {
		return runFailure(err)
	}
	slog.Debug("run finished", "run_id", result.Metadata.RunID, "duration", result.Duration)

	w, closeOut, err := openOutput(cmd, runOutput)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	defer closeOut()

	if err := formatter.Format(result.Results, result.Metadata, w); err != nil {
		return exitError(ExitModelError, "llmagg: write results: %w", err)
	}
	return nil
}

// readInputs reads each file as one partition. No files means stdin.
func readInputs(cmd *cobra.Command, files []string, format rowio.Format) ([][]batch.Row, error) {
	if len(files) == 0 {
		files = []string{rowio.Stdin}
	}

	partitions := make([][]batch.Row, 0, len(files))
	for _, path := range files {
		rows, err := readInput(cmd, path, format)
		if err != nil {
			return nil, err
		}
		slog.Debug("read input", "path", path, "rows", len(rows))
		partitions = append(partitions, rows)
	}
	return partitions, nil
}

func readInput(cmd *cobra.Command, path string, format rowio.Format) ([]batch.Row, error) {
	if path == rowio.Stdin {
		return rowio.Read(cmd.InOrStdin(), format)
	}

	info, err := cmdFS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %q is a directory", path)
	}

	f, err := cmdFS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if format == rowio.FormatAuto {
		format = rowio.FormatFromExt(path)
	}
	rows, err := rowio.Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// openCatalog opens path, or the default catalog location when empty.
func openCatalog(cmd *cobra.Command, path string) (*catalog.Catalog, error) {
	if path == "" {
		var err error
		if path, err = catalog.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return catalog.Open(cmd.Context(), path)
}

// openOutput returns stdout, or the named file with its parent directories
// created.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	if err := cmdFS.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := cmdFS.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
