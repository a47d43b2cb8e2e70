package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the tool.
// Zero values mean "unspecified" and are replaced by defaults in the CLI.
type Config struct {
	// BaseURL of the inference server.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
	// Model identifier sent with completion requests.
	Model string `json:"model" yaml:"model" toml:"model"`
	// CheckpointPath is the default safetensors file for the keys command.
	CheckpointPath string `json:"checkpoint_path" yaml:"checkpoint_path" toml:"checkpoint_path"`
	// KeyPrefix filters tensor keys in the keys command.
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" toml:"key_prefix"`
	// ChatMaxTokens is the token budget for chat requests.
	ChatMaxTokens int `json:"chat_max_tokens" yaml:"chat_max_tokens" toml:"chat_max_tokens"`
	// CompleteMaxTokens is the token budget for text completion requests.
	CompleteMaxTokens int `json:"complete_max_tokens" yaml:"complete_max_tokens" toml:"complete_max_tokens"`
	// StubAddr is the listen address for the stub server.
	StubAddr string `json:"stub_addr" yaml:"stub_addr" toml:"stub_addr"`
	// LogLevel: debug|info|warn|error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
