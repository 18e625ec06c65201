package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/davetashner/llmagg/internal/llm"
)

// newTestCmd resets every flag and redirects rootCmd's I/O.
func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	resetFlags()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(strings.NewReader(""))
	return rootCmd, stdout, stderr
}

// resetFlags resets all command flags to avoid test contamination.
func resetFlags() {
	verbose, quiet, noColor, logFormat = false, false, false, ""
	runPrompt, runModel, runProvider, runGroupBy = "", "", "", ""
	runCatalog, runFormat, runInputFormat, runOutput = "", "", "", ""
	runConcurrency, runTemperature, runShrinkFactor = 0, 0, 0
	runTokenCounter, runPromptName, runPromptVersion = "", "", 0
	promptsCatalog, promptsVersion = "", 0
	embedModel, embedProvider, embedCatalog, embedInputFormat, embedOutput = "", "", "", "", ""
	fuseFields, fuseInputFormat, fuseOutput = nil, "", ""
	modelsCatalog, modelsProvider, modelsModelID = "", "", ""
	modelsContextWindow, modelsMaxOutputTokens = 0, 0
	configGlobal = false
	mcpCatalog = ""

	reset := func(f *pflag.Flag) {
		f.Changed = false
		// Set on a slice flag appends.
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
			return
		}
		_ = f.Value.Set(f.DefValue)
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range []*cobra.Command{
		runCmd, modelsCmd, modelsAddCmd, modelsRemoveCmd,
		configGetCmd, configSetCmd, mcpServeCmd,
		promptsCmd, promptsShowCmd, embedCmd, fuseCmd,
	} {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
}

// isolate runs the test in an empty working directory with private config
// and data homes.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Chdir(dir)
	return dir
}

// providerCalls records what the CLI asked the provider factory for.
type providerCalls struct {
	mu       sync.Mutex
	provider string
	model    string
	n        int
}

func (p *providerCalls) last() (string, string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.provider, p.model, p.n
}

// withMockProvider routes every provider the CLI builds to mock.
func withMockProvider(t *testing.T, mock *llm.MockProvider) *providerCalls {
	t.Helper()
	calls := &providerCalls{}
	orig := newProvider
	newProvider = func(_ context.Context, provider, model string) (llm.Provider, error) {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		calls.provider, calls.model = provider, model
		calls.n++
		return mock, nil
	}
	t.Cleanup(func() { newProvider = orig })
	return calls
}
