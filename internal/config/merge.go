package config

import (
	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/tokens"
)

// RunConfig is the effective configuration of one run, built from CLI flags
// and config files.
type RunConfig struct {
	Function     string
	Prompt       string
	Model        string
	Provider     string
	Catalog      string
	TokenCounter string
	OutputFormat string
	InputFormat  string
	GroupBy      string
	Concurrency  int
	Temperature  *float64
	ShrinkFactor float64
	LogFormat    string
}

// Overlay returns global with every field set in local taking its place.
func Overlay(global, local *Config) *Config {
	out := *global
	if local.Model != "" {
		out.Model = local.Model
	}
	if local.Provider != "" {
		out.Provider = local.Provider
	}
	if local.Catalog != "" {
		out.Catalog = local.Catalog
	}
	if local.TokenCounter != "" {
		out.TokenCounter = local.TokenCounter
	}
	if local.OutputFormat != "" {
		out.OutputFormat = local.OutputFormat
	}
	if local.Concurrency != 0 {
		out.Concurrency = local.Concurrency
	}
	if local.Temperature != nil {
		out.Temperature = local.Temperature
	}
	if local.ShrinkFactor != 0 {
		out.ShrinkFactor = local.ShrinkFactor
	}
	if local.LogFormat != "" {
		out.LogFormat = local.LogFormat
	}
	if len(local.Functions) > 0 {
		out.Functions = make(map[string]FunctionConfig, len(global.Functions)+len(local.Functions))
		for name, fc := range global.Functions {
			out.Functions[name] = fc
		}
		for name, fc := range local.Functions {
			out.Functions[name] = fc
		}
	}
	return &out
}

// Merge combines file-based config with CLI-provided RunConfig.
// CLI values take precedence; zero-value CLI fields fall through to the
// function's block in the file, then to the file's top-level settings.
func Merge(fileCfg *Config, cliCfg RunConfig) RunConfig {
	result := cliCfg
	fc := fileCfg.Functions[cliCfg.Function]

	// Model and provider travel together: a CLI model keeps the CLI provider
	// (or none), so a file provider never pairs with a CLI model by accident.
	if result.Model == "" {
		switch {
		case fc.Model != "":
			result.Model = fc.Model
			if result.Provider == "" {
				result.Provider = fc.Provider
			}
		case fileCfg.Model != "":
			result.Model = fileCfg.Model
			if result.Provider == "" {
				result.Provider = fileCfg.Provider
			}
		}
	}
	if result.Provider == "" && result.Model == "" {
		result.Provider = fileCfg.Provider
	}

	if result.Catalog == "" {
		result.Catalog = fileCfg.Catalog
	}
	if result.TokenCounter == "" {
		result.TokenCounter = fileCfg.TokenCounter
	}
	if result.OutputFormat == "" {
		result.OutputFormat = fileCfg.OutputFormat
	}
	if result.Concurrency == 0 && fileCfg.Concurrency > 0 {
		result.Concurrency = fileCfg.Concurrency
	}
	if result.Temperature == nil {
		if fc.Temperature != nil {
			result.Temperature = fc.Temperature
		} else {
			result.Temperature = fileCfg.Temperature
		}
	}
	if result.ShrinkFactor == 0 && fileCfg.ShrinkFactor > 0 {
		result.ShrinkFactor = fileCfg.ShrinkFactor
	}
	if result.LogFormat == "" {
		result.LogFormat = fileCfg.LogFormat
	}
	return result
}

// WithDefaults fills every unset field with its default.
func (c RunConfig) WithDefaults() RunConfig {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.TokenCounter == "" {
		c.TokenCounter = tokens.Default
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.ShrinkFactor == 0 {
		c.ShrinkFactor = batch.DefaultShrinkFactor
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}
