// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes llmagg's aggregate functions as tools over stdio transport.
package mcpserver

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveDir resolves the directory whose .llmagg.yaml applies to a tool
// call to an absolute, symlink-resolved path. It returns an error if the
// path does not exist or is not a directory.
func ResolveDir(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, info, err := resolve(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", path)
	}
	return abs, nil
}

// ResolveFile resolves an input file to an absolute, symlink-resolved path.
// It returns an error if the path does not exist or is a directory.
func ResolveFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty input file path")
	}
	abs, info, err := resolve(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory, not an input file", path)
	}
	return abs, nil
}

func resolve(path string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("path %q does not exist", path)
	}
	return abs, info, nil
}
