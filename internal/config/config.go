// Package config handles .llmagg.yaml configuration files.
package config

// Config represents the contents of a .llmagg.yaml file.
type Config struct {
	Model        string                    `yaml:"model,omitempty"`
	Provider     string                    `yaml:"provider,omitempty"`
	Catalog      string                    `yaml:"catalog,omitempty"`
	TokenCounter string                    `yaml:"token_counter,omitempty"`
	OutputFormat string                    `yaml:"output_format,omitempty"`
	Concurrency  int                       `yaml:"concurrency,omitempty"`
	Temperature  *float64                  `yaml:"temperature,omitempty"`
	ShrinkFactor float64                   `yaml:"shrink_factor,omitempty"`
	LogFormat    string                    `yaml:"log_format,omitempty"`
	Functions    map[string]FunctionConfig `yaml:"functions,omitempty"`
}

// FunctionConfig holds per-function overrides in the config file.
type FunctionConfig struct {
	Model       string   `yaml:"model,omitempty"`
	Provider    string   `yaml:"provider,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// FileName is the expected config file name in the working directory.
const FileName = ".llmagg.yaml"

// Defaults applied by RunConfig.WithDefaults.
const (
	DefaultModel        = "default"
	DefaultOutputFormat = "json"
	DefaultConcurrency  = 4
	DefaultLogFormat    = "text"
)
