package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/config"
)

// Models command flags.
var (
	modelsCatalog         string
	modelsProvider        string
	modelsModelID         string
	modelsContextWindow   int
	modelsMaxOutputTokens int
)

// modelsCmd is the parent command for the model catalog.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the model catalog",
	Long: `Manage the catalog of models llmagg can call.

Every model has a name, the provider serving it, the provider's model id,
a context window and an output token limit. Batches are sized from the last
two. Built-in definitions ship with llmagg; user definitions with the same
name and provider take their place.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a user model definition",
	Long: `Add or replace a user model definition.

Examples:
  llmagg models add fast --provider gemini --model-id gemini-2.5-flash-lite \
      --context-window 1048576 --max-output-tokens 65536`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsAdd,
}

var modelsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a user model definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsRemove,
}

var modelsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import model definitions from a YAML or TOML file",
	Long: `Import model definitions from a YAML or TOML file with a top-level
"models" list. Every definition is validated before any is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsImport,
}

func init() {
	modelsCmd.PersistentFlags().StringVar(&modelsCatalog, "catalog", "", "model catalog database (default from config)")

	modelsAddCmd.Flags().StringVar(&modelsProvider, "provider", "", "provider serving the model (required)")
	modelsAddCmd.Flags().StringVar(&modelsModelID, "model-id", "", "provider model id (default: the name)")
	modelsAddCmd.Flags().IntVar(&modelsContextWindow, "context-window", 0, "context window in tokens (required)")
	modelsAddCmd.Flags().IntVar(&modelsMaxOutputTokens, "max-output-tokens", 0, "output limit in tokens (required)")
	_ = modelsAddCmd.MarkFlagRequired("provider")
	_ = modelsAddCmd.MarkFlagRequired("context-window")
	_ = modelsAddCmd.MarkFlagRequired("max-output-tokens")

	modelsRemoveCmd.Flags().StringVar(&modelsProvider, "provider", "", "only remove the definition for this provider")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsAddCmd)
	modelsCmd.AddCommand(modelsRemoveCmd)
	modelsCmd.AddCommand(modelsImportCmd)
}

// openConfiguredCatalog opens the catalog at path, else the configured one,
// else the default.
func openConfiguredCatalog(cmd *cobra.Command, path string) (*catalog.Catalog, error) {
	if path == "" {
		cfg, err := config.LoadLayered(".")
		if err != nil {
			return nil, err
		}
		path = cfg.Catalog
	}
	return openCatalog(cmd, path)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	cat, err := openConfiguredCatalog(cmd, modelsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	models, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	dim := color.New(color.Faint)

	_, _ = fmt.Fprintln(tw, bold.Sprint("NAME")+"\t"+bold.Sprint("PROVIDER")+"\t"+bold.Sprint("MODEL ID")+"\t"+
		bold.Sprint("CONTEXT")+"\t"+bold.Sprint("MAX OUTPUT")+"\t"+bold.Sprint("SOURCE"))
	for _, m := range models {
		source := green.Sprint("user")
		if m.Builtin {
			source = dim.Sprint("builtin")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Name, m.Provider, m.APIModel(),
			strconv.Itoa(m.ContextWindow), strconv.Itoa(m.MaxOutputTokens), source)
	}
	return tw.Flush()
}

func runModelsAdd(cmd *cobra.Command, args []string) error {
	m := catalog.Model{
		Name:            args[0],
		Provider:        modelsProvider,
		ModelID:         modelsModelID,
		ContextWindow:   modelsContextWindow,
		MaxOutputTokens: modelsMaxOutputTokens,
	}
	if err := m.Validate(); err != nil {
		return exitError(ExitInvalidArgs, "%w", err)
	}

	cat, err := openConfiguredCatalog(cmd, modelsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	if err := cat.Upsert(cmd.Context(), m); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", m.Name, m.Provider)
	return nil
}

func runModelsRemove(cmd *cobra.Command, args []string) error {
	cat, err := openConfiguredCatalog(cmd, modelsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	if err := cat.Delete(cmd.Context(), args[0], modelsProvider); err != nil {
		return exitError(ExitInvalidArgs, "%w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runModelsImport(cmd *cobra.Command, args []string) error {
	models, err := catalog.LoadFile(args[0])
	if err != nil {
		return exitError(ExitInvalidArgs, "%w", err)
	}

	cat, err := openConfiguredCatalog(cmd, modelsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	if err := cat.Import(cmd.Context(), models); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d models from %s\n", len(models), args[0])
	return nil
}
