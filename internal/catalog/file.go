// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// modelFile is the on-disk shape of a model definition file:
//
//	models:
//	  - name: local-llama
//	    provider: anthropic
//	    context_window: 8192
//	    max_output_tokens: 1024
type modelFile struct {
	Models []Model `yaml:"models" toml:"models"`
}

// LoadFile reads model definitions from a YAML (.yaml, .yml) or TOML (.toml)
// file and validates every entry.
func LoadFile(path string) ([]Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied definitions file
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var f modelFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("catalog: %s: unsupported file type %q (want .yaml, .yml or .toml)", path, ext)
	}

	if len(f.Models) == 0 {
		return nil, fmt.Errorf("catalog: %s defines no models", path)
	}
	for _, m := range f.Models {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f.Models, nil
}
