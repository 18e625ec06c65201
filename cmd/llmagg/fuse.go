package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/scalar"
)

// Fuse command flags.
var (
	fuseFields      []string
	fuseInputFormat string
	fuseOutput      string
)

var fuseCmd = &cobra.Command{
	Use:   "fuse --fields a,b [file...]",
	Short: "Fuse several score fields into one score per row",
	Long: `Fuse several score fields into one score per row, as when combining a
keyword search score with a vector similarity. Each field is min-max
normalized across all rows; a row keeps the original value of its field
with the highest normalized score. One JSON line is written per row:

  {"row": {...}, "value": 0.92}

Examples:
  llmagg fuse --fields bm25,similarity hits.jsonl`,
	RunE: runFuse,
}

func init() {
	f := fuseCmd.Flags()
	f.StringSliceVar(&fuseFields, "fields", nil, "numeric row fields to fuse, in tie-break order (required)")
	f.StringVar(&fuseInputFormat, "input-format", "", "input format: jsonl, json or csv (default: detect)")
	f.StringVarP(&fuseOutput, "output", "o", "", "write scores to this file instead of stdout")
	_ = fuseCmd.MarkFlagRequired("fields")
}

// fusedRow is one line of fuse output.
type fusedRow struct {
	Row   batch.Row       `json:"row"`
	Value json.RawMessage `json:"value"`
}

func runFuse(cmd *cobra.Command, files []string) error {
	rows, err := readAllRows(cmd, files, fuseInputFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	values, err := scalar.Fuse(rows, fuseFields)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}

	w, closeOut, err := openOutput(cmd, fuseOutput)
	if err != nil {
		return exitError(ExitInvalidArgs, "llmagg: %w", err)
	}
	defer closeOut()

	enc := json.NewEncoder(w)
	for i, v := range values {
		if err := enc.Encode(fusedRow{Row: rows[i], Value: v}); err != nil {
			return exitError(ExitInvalidArgs, "llmagg: write scores: %w", err)
		}
	}
	return nil
}
