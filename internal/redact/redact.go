// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package redact strips provider credentials from text before it reaches
// stderr, logs or result files. Provider errors can echo request headers,
// so every user-visible error passes through String.
package redact

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// sensitiveEnvVars are read once; their values are replaced verbatim.
var sensitiveEnvVars = []string{
	"ANTHROPIC_API_KEY",
	"ANTHROPIC_AUTH_TOKEN",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"OPENAI_API_KEY",
}

// keyPatterns match credentials by shape, whether or not they came from
// the environment.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
}

var (
	mu       sync.Mutex
	replacer *strings.Replacer
)

func load() *strings.Replacer {
	mu.Lock()
	defer mu.Unlock()
	if replacer != nil {
		return replacer
	}
	var pairs []string
	for _, name := range sensitiveEnvVars {
		// Short values would cause false positives.
		if v := os.Getenv(name); len(v) >= 4 {
			pairs = append(pairs, v, Placeholder)
		}
	}
	replacer = strings.NewReplacer(pairs...)
	return replacer
}

func resetCache() {
	mu.Lock()
	replacer = nil
	mu.Unlock()
}

// ResetForTest drops the cached environment values so tests in other
// packages can set keys with t.Setenv.
func ResetForTest() { resetCache() }

// String replaces known secret values and key-shaped tokens in s with
// Placeholder. Environment values are cached on first use.
func String(s string) string {
	s = load().Replace(s)
	for _, re := range keyPatterns {
		s = re.ReplaceAllLiteralString(s, Placeholder)
	}
	return s
}
