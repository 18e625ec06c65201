package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	llmagglog "github.com/davetashner/llmagg/internal/log"
)

// Global flag values.
var (
	verbose   bool
	quiet     bool
	noColor   bool
	logFormat string
)

// rootCmd is the base command for llmagg.
var rootCmd = &cobra.Command{
	Use:   "llmagg",
	Short: "Aggregate rows with a language model",
	Long: `llmagg runs aggregate functions whose logic is a natural-language
prompt. It packs input rows into model calls that fit the model's context
window and output limit, then picks the best row, summarizes, reranks,
completes or filters them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if noColor {
			color.NoColor = true
		}
		llmagglog.Setup(cmd.ErrOrStderr(), verbose, quiet, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(fuseCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
