package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func init() {
	RegisterFormatter(NewJSONFormatter())
	RegisterFormatter(&JSONLFormatter{})
}

// JSONEnvelope wraps results with metadata for the JSON output format.
type JSONEnvelope struct {
	Results  []Result `json:"results"`
	Metadata Metadata `json:"metadata"`
}

// JSONFormatter writes results as a JSON object with metadata envelope.
type JSONFormatter struct {
	// Compact controls whether output is compact (single line) or pretty-printed.
	// When false (default), output is pretty for terminals and compact for pipes.
	Compact bool
}

// Compile-time interface check.
var _ Formatter = (*JSONFormatter)(nil)

// NewJSONFormatter returns a new JSONFormatter with default settings.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes all results as a JSON document with a metadata envelope to w.
func (f *JSONFormatter) Format(results []Result, meta Metadata, w io.Writer) error {
	if results == nil {
		results = []Result{}
	}
	envelope := JSONEnvelope{Results: results, Metadata: meta}

	var data []byte
	var err error
	if f.shouldCompact(w) {
		data, err = json.Marshal(envelope)
	} else {
		data, err = json.MarshalIndent(envelope, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write json trailing newline: %w", err)
	}
	return nil
}

// shouldCompact determines whether to use compact mode.
// If Compact is explicitly set, use that value.
// Otherwise, auto-detect: pretty-print for TTYs, compact for pipes.
func (f *JSONFormatter) shouldCompact(w io.Writer) bool {
	if f.Compact {
		return true
	}

	if file, ok := w.(*os.File); ok {
		fi, err := file.Stat()
		if err != nil {
			return false // default to pretty on error
		}
		return fi.Mode()&os.ModeCharDevice == 0
	}

	// For non-file writers (e.g., bytes.Buffer in tests), default to pretty.
	return false
}

// JSONLFormatter writes one compact JSON object per result and no metadata.
type JSONLFormatter struct{}

var _ Formatter = (*JSONLFormatter)(nil)

// Name returns the format name.
func (f *JSONLFormatter) Name() string { return "jsonl" }

// Format writes each result on its own line.
func (f *JSONLFormatter) Format(results []Result, _ Metadata, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write jsonl: %w", err)
		}
	}
	return nil
}
