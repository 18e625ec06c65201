package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func init() {
	RegisterFormatter(NewMarkdownFormatter())
}

// MarkdownFormatter writes results as a human-readable Markdown summary.
type MarkdownFormatter struct{}

// Compile-time interface check.
var _ Formatter = (*MarkdownFormatter)(nil)

// NewMarkdownFormatter returns a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Name returns the format name.
func (m *MarkdownFormatter) Name() string {
	return "markdown"
}

// Format writes all results as a Markdown document to w.
//
// The output includes:
//   - A title heading naming the function
//   - A summary line with row count, model and run id
//   - One section per group with its value as a JSON code block
func (m *MarkdownFormatter) Format(results []Result, meta Metadata, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# llmagg %s\n\n", meta.Function); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := fmt.Fprintf(w, "**Rows:** %d | **Groups:** %d | **Model:** %s (%s) | **Run:** `%s`\n\n",
		meta.TotalRows, len(results), meta.Model, meta.Provider, meta.RunID); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, r := range results {
		if err := writeResultSection(w, meta.GroupBy, r); err != nil {
			return err
		}
	}
	return nil
}

// writeResultSection writes a single group's section.
func writeResultSection(w io.Writer, groupBy string, r Result) error {
	heading := "All rows"
	if groupBy != "" {
		key := r.Group
		if key == "" {
			key = "(none)"
		}
		heading = fmt.Sprintf("%s = %s", groupBy, key)
	}
	if _, err := fmt.Fprintf(w, "## %s (%d rows)\n\n", heading, r.Rows); err != nil {
		return fmt.Errorf("write group heading: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, r.Value, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(r.Value)
	}
	if _, err := fmt.Fprintf(w, "```json\n%s\n```\n\n", pretty.String()); err != nil {
		return fmt.Errorf("write group value: %w", err)
	}
	return nil
}
