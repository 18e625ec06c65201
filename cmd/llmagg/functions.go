package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/aggregate"
	"github.com/davetashner/llmagg/internal/config"
)

// functionsCmd lists the registered aggregate functions.
var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the available aggregate functions",
	Long: `List the registered aggregate functions with their description and the
model configured for each in .llmagg.yaml, if any.`,
	Args: cobra.NoArgs,
	RunE: runFunctions,
}

func runFunctions(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	cfg, _ := config.LoadLayered(".") // best-effort; no overrides shown if invalid
	if cfg == nil {
		cfg = &config.Config{}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	_, _ = fmt.Fprintln(tw, bold.Sprint("NAME")+"\t"+bold.Sprint("MODEL")+"\t"+bold.Sprint("DESCRIPTION"))
	for _, name := range aggregate.List() {
		model := "-"
		if fc, ok := cfg.Functions[name]; ok && fc.Model != "" {
			model = cyan.Sprint(fc.Model)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, model, aggregate.Get(name).Description())
	}
	return tw.Flush()
}
