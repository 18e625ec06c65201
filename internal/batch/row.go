// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is one input tuple: an ordered mapping of field name to JSON value.
// Values are kept as the JSON text they arrived as, so numbers of any size
// and field order survive encoding unchanged. A Row is not modified after it
// is built.
type Row struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewRow builds a row from alternating key/value arguments. Values are
// encoded with encoding/json. It panics if a key is not a string, a value is
// missing or a value cannot be encoded, which is a programming error.
func NewRow(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("batch.NewRow: odd number of arguments")
	}
	m := orderedmap.New[string, json.RawMessage](len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("batch.NewRow: key %v is not a string", kv[i]))
		}
		v, err := json.Marshal(kv[i+1])
		if err != nil {
			panic(fmt.Sprintf("batch.NewRow: field %q: %v", k, err))
		}
		m.Set(k, v)
	}
	return Row{fields: m}
}

// Raw returns the JSON text stored under key.
func (r Row) Raw(key string) (json.RawMessage, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Get decodes the value stored under key. Numbers come back as json.Number
// so no precision is lost.
func (r Row) Get(key string) (any, bool) {
	raw, ok := r.Raw(key)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// Keys returns the field names in order.
func (r Row) Keys() []string {
	if r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of fields.
func (r Row) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// MarshalJSON encodes the row as a JSON object with fields in order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping its field order.
func (r *Row) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, json.RawMessage]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("batch: decode row: %w", err)
	}
	r.fields = m
	return nil
}

// String renders the row as compact JSON.
func (r Row) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<row: %v>", err)
	}
	return string(data)
}

// IndexedRow pairs a row with its local id inside one batch or window.
// Ids restart at 0 for every batch and never identify a row across batches.
type IndexedRow struct {
	ID  int
	Row Row
}
