// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package rowio reads input rows from JSON Lines, JSON array and CSV sources
// and groups them by a key field.
package rowio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davetashner/llmagg/internal/batch"
)

// Format names an input encoding.
type Format string

// Supported input formats.
const (
	FormatAuto  Format = ""
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Stdin is the path that reads from standard input.
const Stdin = "-"

// ParseFormat validates a format name. The empty string means auto-detect.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatJSONL, FormatJSON, FormatCSV:
		return f, nil
	case "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("rowio: unknown format %q (want jsonl, json or csv)", s)
	}
}

// ReadFile reads rows from path, or from stdin when path is "-".
func ReadFile(path string, format Format, stdin io.Reader) ([]batch.Row, error) {
	if path == Stdin {
		return Read(stdin, format)
	}

	f, err := os.Open(path) //nolint:gosec // user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("rowio: %w", err)
	}
	defer func() { _ = f.Close() }()

	if format == FormatAuto {
		format = FormatFromExt(path)
	}
	rows, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// FormatFromExt infers the format from the file extension, falling back to
// FormatAuto.
func FormatFromExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatAuto
	}
}

// Read decodes rows from r. With FormatAuto, input starting with '[' is a
// JSON array and anything else is JSON Lines.
func Read(r io.Reader, format Format) ([]batch.Row, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = sniff(br)
	}

	switch format {
	case FormatJSON:
		return readJSONArray(br)
	case FormatCSV:
		return readCSV(br)
	default:
		return readJSONL(br)
	}
}

func sniff(br *bufio.Reader) Format {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return FormatJSONL
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		case '[':
			return FormatJSON
		default:
			return FormatJSONL
		}
	}
}

func readJSONL(r io.Reader) ([]batch.Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []batch.Row
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var row batch.Row
		if err := json.Unmarshal(text, &row); err != nil {
			return nil, fmt.Errorf("rowio: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rowio: %w", err)
	}
	return rows, nil
}

func readJSONArray(r io.Reader) ([]batch.Row, error) {
	var rows []batch.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("rowio: decode JSON array: %w", err)
	}
	return rows, nil
}

// readCSV treats the first record as the header. Every value is a string.
func readCSV(r io.Reader) ([]batch.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rowio: read CSV header: %w", err)
	}

	var rows []batch.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rowio: read CSV: %w", err)
		}
		kv := make([]any, 0, 2*len(header))
		for i, name := range header {
			kv = append(kv, name, rec[i])
		}
		rows = append(rows, batch.NewRow(kv...))
	}
	return rows, nil
}

// Group is the rows sharing one key value.
type Group struct {
	// ID identifies the key value including its JSON type, so "1" and 1
	// are different groups and a missing field differs from "".
	ID string
	// Key is the value for display: string values bare, others as JSON,
	// and empty when the field is missing.
	Key  string
	Rows []batch.Row
}

// GroupBy partitions rows by the value of field, preserving the order in
// which keys first appear and the order of rows within each group. Rows
// without the field share one group with an empty Key. An empty field
// yields a single group holding every row.
func GroupBy(rows []batch.Row, field string) []Group {
	if field == "" {
		return []Group{{Rows: rows}}
	}

	index := make(map[string]int)
	var groups []Group
	for _, r := range rows {
		id, key := groupKey(r, field)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id, Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}

// missingKey is the group ID of rows lacking the field. No typed ID starts
// with a NUL byte.
const missingKey = "\x00missing"

func groupKey(r batch.Row, field string) (id, key string) {
	raw, ok := r.Raw(field)
	if !ok {
		return missingKey, ""
	}
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return "s:" + s, s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "j:" + string(raw), string(raw)
	}
	return "j:" + buf.String(), buf.String()
}
