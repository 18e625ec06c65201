package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/davetashner/llmagg/internal/aggregate"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/output"
	"github.com/davetashner/llmagg/internal/tokens"
)

// Validate checks all fields in the config and returns all errors at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Provider != "" && !slices.Contains(llm.Providers(), cfg.Provider) {
		errs = append(errs, fmt.Sprintf("provider: unknown provider %q (available: %s)", cfg.Provider, strings.Join(llm.Providers(), ", ")))
	}

	if cfg.TokenCounter != "" {
		if _, err := tokens.ByName(cfg.TokenCounter); err != nil {
			errs = append(errs, fmt.Sprintf("token_counter: %v", err))
		}
	}

	if cfg.OutputFormat != "" {
		if _, err := output.GetFormatter(cfg.OutputFormat); err != nil {
			errs = append(errs, fmt.Sprintf("output_format: %v", err))
		}
	}

	if cfg.Concurrency < 0 {
		errs = append(errs, fmt.Sprintf("concurrency: must be non-negative, got %d", cfg.Concurrency))
	}

	if msg := checkTemperature(cfg.Temperature); msg != "" {
		errs = append(errs, "temperature: "+msg)
	}

	if cfg.ShrinkFactor < 0 || cfg.ShrinkFactor >= 1 {
		errs = append(errs, fmt.Sprintf("shrink_factor: must be in (0, 1), got %g", cfg.ShrinkFactor))
	}

	switch cfg.LogFormat {
	case "", "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Sprintf("log_format: invalid value %q (must be text or json)", cfg.LogFormat))
	}

	for name, fc := range cfg.Functions {
		if aggregate.Get(name) == nil {
			errs = append(errs, fmt.Sprintf("functions.%s: unknown function", name))
		}
		if fc.Provider != "" && !slices.Contains(llm.Providers(), fc.Provider) {
			errs = append(errs, fmt.Sprintf("functions.%s.provider: unknown provider %q", name, fc.Provider))
		}
		if msg := checkTemperature(fc.Temperature); msg != "" {
			errs = append(errs, fmt.Sprintf("functions.%s.temperature: %s", name, msg))
		}
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func checkTemperature(t *float64) string {
	if t != nil && (*t < 0 || *t > 2) {
		return fmt.Sprintf("must be between 0.0 and 2.0, got %g", *t)
	}
	return ""
}
