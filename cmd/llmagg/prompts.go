package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/davetashner/llmagg/internal/catalog"
)

// Prompts command flags.
var (
	promptsCatalog string
	promptsVersion int
)

// promptsCmd is the parent command for stored prompts.
var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage stored prompts",
	Long: `Manage named prompts stored in the catalog database.

Saving under an existing name adds a new version. "llmagg run --prompt-name"
uses the latest version unless --prompt-version picks another.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest version of every prompt",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

var promptsAddCmd = &cobra.Command{
	Use:   "add <name> [text]",
	Short: "Save a new version of a prompt",
	Long: `Save a new version of a prompt. The text is read from stdin when it is
not given as an argument.

Examples:
  llmagg prompts add severity "the incident with the widest customer impact"
  llmagg prompts add summary < summary-prompt.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPromptsAdd,
}

var promptsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove every version of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsRemove,
}

func init() {
	promptsCmd.PersistentFlags().StringVar(&promptsCatalog, "catalog", "", "catalog database (default from config)")
	promptsShowCmd.Flags().IntVar(&promptsVersion, "version", 0, "version to print (default latest)")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsAddCmd)
	promptsCmd.AddCommand(promptsRemoveCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	cat, err := openConfiguredCatalog(cmd, promptsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	prompts, err := cat.ListPrompts(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	_, _ = fmt.Fprintln(tw, bold.Sprint("NAME")+"\t"+bold.Sprint("VERSION")+"\t"+
		bold.Sprint("UPDATED")+"\t"+bold.Sprint("PROMPT"))
	for _, p := range prompts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Name, strconv.Itoa(p.Version), dim.Sprint(p.UpdatedAt.Format("2006-01-02 15:04")), firstLine(p.Text, 60))
	}
	return tw.Flush()
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	cat, err := openConfiguredCatalog(cmd, promptsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	p, err := cat.Prompt(cmd.Context(), args[0], promptsVersion)
	if err != nil {
		if errors.Is(err, catalog.ErrPromptNotFound) {
			return exitError(ExitInvalidArgs, "%w", err)
		}
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), p.Text)
	return nil
}

func runPromptsAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	var text string
	if len(args) == 2 {
		text = args[1]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return exitError(ExitInvalidArgs, "read prompt: %w", err)
		}
		text = strings.TrimRight(string(data), "\r\n")
	}

	cat, err := openConfiguredCatalog(cmd, promptsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	p, err := cat.SavePrompt(cmd.Context(), name, text)
	if err != nil {
		return exitError(ExitInvalidArgs, "%w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (version %d)\n", p.Name, p.Version)
	return nil
}

func runPromptsRemove(cmd *cobra.Command, args []string) error {
	cat, err := openConfiguredCatalog(cmd, promptsCatalog)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	if err := cat.DeletePrompt(cmd.Context(), args[0]); err != nil {
		return exitError(ExitInvalidArgs, "%w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

// firstLine returns s up to its first newline, cut to limit runes.
func firstLine(s string, limit int) string {
	s, _, cut := strings.Cut(s, "\n")
	if r := []rune(s); len(r) > limit {
		s, cut = string(r[:limit]), true
	}
	if cut {
		s += "..."
	}
	return s
}
