// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package tokens estimates the token cost of prompt text.
//
// The words and bytes counters are approximations: they only need to be
// deterministic and roughly proportional to what a provider would bill,
// since batch sizing corrects itself from observed output. The tiktoken
// counter runs a real BPE vocabulary (cl100k_base).
package tokens

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter returns the number of token-equivalent units in text. A Counter
// must be pure and deterministic.
type Counter func(text string) int

// wordPattern matches runs of word characters and single punctuation marks.
var wordPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// Words counts every word run and every punctuation mark as one token.
func Words(text string) int {
	if text == "" {
		return 0
	}
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// Bytes returns a Counter that charges one token per bytesPerToken bytes of
// UTF-8 text, rounding up. Values <= 0 fall back to 4.
func Bytes(bytesPerToken int) Counter {
	bpt := bytesPerToken
	if bpt <= 0 {
		bpt = 4
	}
	return func(text string) int {
		n := len(text)
		if n == 0 {
			return 0
		}
		return (n + bpt - 1) / bpt
	}
}

// loadCl100k loads the cl100k_base codec once per process.
var loadCl100k = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.Cl100kBase)
})

// Tiktoken returns a Counter backed by the cl100k_base BPE vocabulary. Text
// the codec cannot encode falls back to Words.
func Tiktoken() (Counter, error) {
	codec, err := loadCl100k()
	if err != nil {
		return nil, fmt.Errorf("tokens: load cl100k_base: %w", err)
	}
	return func(text string) int {
		if text == "" {
			return 0
		}
		ids, _, err := codec.Encode(text)
		if err != nil {
			return Words(text)
		}
		return len(ids)
	}, nil
}

// Default is the counter used when none is configured.
const Default = "words"

var counters = map[string]func() (Counter, error){
	"words":    func() (Counter, error) { return Words, nil },
	"bytes":    func() (Counter, error) { return Bytes(4), nil },
	"tiktoken": Tiktoken,
}

// ByName resolves a configured counter name. An empty name selects Default.
func ByName(name string) (Counter, error) {
	if name == "" {
		name = Default
	}
	build, ok := counters[name]
	if !ok {
		return nil, fmt.Errorf("unknown token counter %q (available: %v)", name, Names())
	}
	return build()
}

// Names lists the registered counter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(counters))
	for n := range counters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
