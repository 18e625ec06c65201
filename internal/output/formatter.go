// Package output defines the Formatter interface for writing aggregate
// results in various formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Result is the finalized value of one group.
type Result struct {
	// Group is the group-by key, empty when the input was not grouped.
	Group string `json:"group,omitempty"`
	// Rows is the number of input rows in the group.
	Rows int `json:"rows"`
	// Value is the aggregate function's JSON result.
	Value json.RawMessage `json:"value"`
}

// Metadata describes the run that produced a set of results.
type Metadata struct {
	RunID       string `json:"run_id"`
	Function    string `json:"function"`
	Model       string `json:"model"`
	Provider    string `json:"provider"`
	GroupBy     string `json:"group_by,omitempty"`
	TotalRows   int    `json:"total_rows"`
	GeneratedAt string `json:"generated_at"`
}

// Formatter writes results to the given writer in a specific format.
type Formatter interface {
	// Name returns the format name (e.g., "json", "jsonl", "markdown").
	Name() string

	// Format writes the results to w.
	Format(results []Result, meta Metadata, w io.Writer) error
}

var (
	fmtMu       sync.RWMutex
	fmtRegistry = make(map[string]Formatter)
)

// RegisterFormatter adds a formatter to the global registry.
func RegisterFormatter(f Formatter) {
	fmtMu.Lock()
	defer fmtMu.Unlock()
	fmtRegistry[f.Name()] = f
}

// GetFormatter returns the formatter with the given name, or an error if not found.
func GetFormatter(name string) (Formatter, error) {
	fmtMu.RLock()
	defer fmtMu.RUnlock()
	f, ok := fmtRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %q (available: %s)", name, strings.Join(formatNames(), ", "))
	}
	return f, nil
}

// Names returns the registered format names, sorted.
func Names() []string {
	fmtMu.RLock()
	defer fmtMu.RUnlock()
	return formatNames()
}

func formatNames() []string {
	names := make([]string, 0, len(fmtRegistry))
	for name := range fmtRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
