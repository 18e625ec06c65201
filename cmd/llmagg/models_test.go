package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels_AddListRemove(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "models.db")

	cmd, stdout, _ := newTestCmd()
	cmd.SetArgs([]string{"models", "add", "fast", "--catalog", db, "--provider", "gemini",
		"--model-id", "gemini-2.5-flash-lite", "--context-window", "1000", "--max-output-tokens", "100"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Added fast (gemini)")

	cmd, stdout, _ = newTestCmd()
	cmd.SetArgs([]string{"models", "list", "--catalog", db})
	require.NoError(t, cmd.Execute())
	out := stdout.String()
	assert.Contains(t, out, "gemini-2.5-flash-lite")
	assert.Contains(t, out, "user")
	assert.Contains(t, out, "claude-haiku-4-5")
	assert.Contains(t, out, "builtin")

	cmd, stdout, _ = newTestCmd()
	cmd.SetArgs([]string{"models", "remove", "fast", "--catalog", db})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Removed fast")

	cmd, _, _ = newTestCmd()
	cmd.SetArgs([]string{"models", "remove", "fast", "--catalog", db})
	err := cmd.Execute()
	requireExitCode(t, err, ExitInvalidArgs)
	assert.Contains(t, err.Error(), "model not found")
}

func TestModels_AddValidates(t *testing.T) {
	isolate(t)
	cmd, _, _ := newTestCmd()
	cmd.SetArgs([]string{"models", "add", "broken", "--provider", "anthropic",
		"--context-window", "0", "--max-output-tokens", "10"})
	err := cmd.Execute()
	requireExitCode(t, err, ExitInvalidArgs)
	assert.Contains(t, err.Error(), "context_window must be positive")
}

func TestModels_ImportUsesConfiguredCatalog(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "team.db")
	writeFile(t, dir, ".llmagg.yaml", "catalog: "+db+"\n")
	file := writeFile(t, dir, "models.toml", `
[[models]]
name = "big"
provider = "anthropic"
model_id = "claude-opus-4-1"
context_window = 200000
max_output_tokens = 32000

[[models]]
name = "small"
provider = "gemini"
context_window = 32000
max_output_tokens = 8192
`)

	cmd, stdout, _ := newTestCmd()
	cmd.SetArgs([]string{"models", "import", file})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Imported 2 models")
	assert.FileExists(t, db)

	cmd, stdout, _ = newTestCmd()
	cmd.SetArgs([]string{"models", "list"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "claude-opus-4-1")
	assert.Contains(t, stdout.String(), "small")
}

func TestModels_ImportRejectsInvalidFile(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "models.yaml", "models:\n  - name: x\n    provider: gemini\n")

	cmd, _, _ := newTestCmd()
	cmd.SetArgs([]string{"models", "import", file})
	err := cmd.Execute()
	requireExitCode(t, err, ExitInvalidArgs)
	assert.Contains(t, err.Error(), "context_window")
}
