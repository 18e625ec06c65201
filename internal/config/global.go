package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfigDir returns the directory for global llmagg configuration.
// It uses $XDG_CONFIG_HOME/llmagg if set, otherwise ~/.config/llmagg.
func GlobalConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "llmagg")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "llmagg")
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.yaml")
}

// LoadGlobal loads the global config file.
// If the file does not exist, it returns a zero-value Config and nil error.
func LoadGlobal() (*Config, error) {
	path := GlobalConfigPath()
	data, err := os.ReadFile(path) //nolint:gosec // user config path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadLayered loads the global config, overlays the .llmagg.yaml found in
// dir and validates the result.
func LoadLayered(dir string) (*Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", GlobalConfigPath(), err)
	}
	local, err := Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, FileName), err)
	}
	cfg := Overlay(global, local)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
