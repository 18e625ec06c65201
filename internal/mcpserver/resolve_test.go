// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestResolveDir_ValidDirectory(t *testing.T) {
	dir := realTempDir(t)

	got, err := ResolveDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestResolveDir_EmptyDefaultsToCwd(t *testing.T) {
	got, err := ResolveDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestResolveDir_Errors(t *testing.T) {
	_, err := ResolveDir("/nonexistent/path/that/does/not/exist")
	assert.ErrorContains(t, err, "cannot resolve path")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o600))
	_, err = ResolveDir(file)
	assert.ErrorContains(t, err, "not a directory")

	_, err = ResolveDir("some\x00path")
	assert.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	dir := realTempDir(t)
	file := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(`{"a":1}`+"\n"), 0o600))

	got, err := ResolveFile(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = ResolveFile(dir)
	assert.ErrorContains(t, err, "is a directory")

	_, err = ResolveFile("")
	assert.Error(t, err)

	_, err = ResolveFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "cannot resolve path")
}

func TestResolveFile_FollowsSymlink(t *testing.T) {
	dir := realTempDir(t)
	target := filepath.Join(dir, "target.csv")
	require.NoError(t, os.WriteFile(target, []byte("a\n1\n"), 0o600))

	link := filepath.Join(realTempDir(t), "link.csv")
	require.NoError(t, os.Symlink(target, link))

	got, err := ResolveFile(link)
	require.NoError(t, err)
	assert.Equal(t, target, got, "should resolve symlink to real path")
}
