// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package prompt renders the prompts sent to the model for each kind of
// batch operation and extracts the JSON payload from model replies.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/tidwall/gjson"
)

// Kind selects the prompt template for an operation.
type Kind string

// Supported prompt kinds.
const (
	KindMax      Kind = "max"
	KindMin      Kind = "min"
	KindReduce   Kind = "reduce"
	KindRerank   Kind = "rerank"
	KindComplete Kind = "complete"
	KindFilter   Kind = "filter"
)

// ErrNoJSON is returned by ExtractJSON when a reply holds no JSON document.
var ErrNoJSON = errors.New("prompt: reply is not valid JSON")

// Item is one entry shown to the model, referenced by its local ID.
type Item struct {
	ID      int
	Content any
}

type templateData struct {
	Instruction string
	Items       string
	Relevance   string
}

// Renderer expands the built-in templates. The zero value is not usable;
// construct one with NewRenderer.
type Renderer struct {
	sources   map[Kind]string
	templates map[Kind]*template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() *Renderer {
	sources := map[Kind]string{
		KindMax:      selectTemplate,
		KindMin:      selectTemplate,
		KindReduce:   reduceTemplate,
		KindRerank:   rerankTemplate,
		KindComplete: completeTemplate,
		KindFilter:   filterTemplate,
	}
	r := &Renderer{
		sources:   sources,
		templates: make(map[Kind]*template.Template, len(sources)),
	}
	for kind, src := range sources {
		r.templates[kind] = template.Must(template.New(string(kind)).Parse(src))
	}
	return r
}

// Kinds lists the kinds this renderer knows, sorted.
func (r *Renderer) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Template returns the raw template text for kind. Its token cost is part of
// the fixed overhead of every batch of that kind.
func (r *Renderer) Template(kind Kind) (string, error) {
	src, ok := r.sources[kind]
	if !ok {
		return "", fmt.Errorf("prompt: unknown kind %q", kind)
	}
	return src, nil
}

// Render expands the template for kind with the instruction and items.
func (r *Renderer) Render(kind Kind, instruction string, items []Item) (string, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return "", fmt.Errorf("prompt: unknown kind %q", kind)
	}

	var lines strings.Builder
	for _, it := range items {
		lines.WriteString(Line(it))
		lines.WriteByte('\n')
	}

	data := templateData{
		Instruction: instruction,
		Items:       lines.String(),
		Relevance:   "most",
	}
	if kind == KindMin {
		data.Relevance = "least"
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", kind, err)
	}
	return b.String(), nil
}

// Line renders a single item as it appears in a prompt: "[id] <json>".
func Line(it Item) string {
	data, err := json.Marshal(it.Content)
	if err != nil {
		return fmt.Sprintf("[%d] %v", it.ID, it.Content)
	}
	return fmt.Sprintf("[%d] %s", it.ID, data)
}

// ExtractJSON pulls the JSON document out of a model reply. It tolerates
// markdown code fences and leading or trailing prose around a single object.
func ExtractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present.
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		content = strings.TrimSpace(strings.Join(jsonLines, "\n"))
	}

	if content != "" && gjson.Valid(content) {
		return json.RawMessage(content), nil
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		candidate := content[start : end+1]
		if gjson.Valid(candidate) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, fmt.Errorf("%w: %.200s", ErrNoJSON, content)
}
