package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackendConfig holds the per-engine settings loadable from YAML.
type BackendConfig struct {
	// Binary is the CLI executable for the engine.
	Binary string `yaml:"binary"`

	// DefaultModel is used when a dispatch does not select one.
	DefaultModel string `yaml:"default_model"`

	// PermissionMode is the default approval policy.
	PermissionMode string `yaml:"permission_mode"`

	// ExtraArgs are appended to every invocation.
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// Config is the engine section of the workbench configuration file.
type Config struct {
	Claude BackendConfig `yaml:"claude"`
	Codex  BackendConfig `yaml:"codex"`
	Gemini BackendConfig `yaml:"gemini"`

	// LedgerPath overrides the prompt ledger database location.
	LedgerPath string `yaml:"ledger_path,omitempty"`
}

// DefaultConfig returns the built-in engine defaults.
func DefaultConfig() Config {
	return Config{
		Claude: BackendConfig{Binary: "claude", DefaultModel: "sonnet", PermissionMode: "default"},
		Codex:  BackendConfig{Binary: "codex", DefaultModel: "gpt-5-codex", PermissionMode: "read-only"},
		Gemini: BackendConfig{Binary: "gemini", DefaultModel: "gemini-2.5-pro", PermissionMode: "default"},
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
// A missing file returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read engine config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse engine config: %w", err)
	}
	return cfg, nil
}

// Backend returns the config section for an engine.
func (c Config) Backend(e Engine) BackendConfig {
	switch e {
	case Claude:
		return c.Claude
	case Codex:
		return c.Codex
	case Gemini:
		return c.Gemini
	}
	return BackendConfig{}
}
