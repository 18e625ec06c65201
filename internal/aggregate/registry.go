// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package aggregate defines the LLM-backed aggregate functions, the state
// they accumulate, and a registry of available functions.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/davetashner/llmagg/internal/batch"
)

// Function finalizes an accumulated group of rows into one JSON result.
type Function interface {
	// Name returns the unique name of this function (e.g., "max", "reduce").
	Name() string

	// Description is a one-line summary shown in listings.
	Description() string

	// Finalize runs the function over rows. Rows may be empty.
	Finalize(ctx context.Context, eng *batch.Engine, call batch.Call, rows []batch.Row) (json.RawMessage, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Function)
)

// Register adds a function to the global registry.
// It panics if a function with the same name is already registered.
func Register(f Function) {
	mu.Lock()
	defer mu.Unlock()
	name := f.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("aggregate function already registered: %s", name))
	}
	registry[name] = f
}

// Get returns the function with the given name, or nil if not found.
func Get(name string) Function {
	mu.RLock()
	defer mu.RUnlock()
	return registry[name]
}

// List returns the names of all registered functions, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resetForTesting clears the registry. Only for use in tests.
func resetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Function)
}
