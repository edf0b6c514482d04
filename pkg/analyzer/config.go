package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/jalapi/internal/chunk"
	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/llm"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/normalize"
	"github.com/PentesterFlow/jalapi/internal/pattern"
	"github.com/PentesterFlow/jalapi/internal/semantic"
	"github.com/PentesterFlow/jalapi/internal/source"
)

// Config holds all analyzer configuration.
type Config struct {
	// Instruction sent with every model request
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// Per-chunk template with {code_chunk} and {context} placeholders
	AnalysisPrompt string `json:"analysis_prompt" yaml:"analysis_prompt"`

	// Model provider
	LLM llm.Config `json:"llm" yaml:"llm"`

	// Chunking for the semantic detector
	Chunk chunk.Config `json:"chunk" yaml:"chunk"`

	// Pattern detector
	Pattern pattern.Config `json:"pattern" yaml:"pattern"`

	// Endpoint signatures shared by both detectors
	Signatures normalize.SignatureConfig `json:"signatures" yaml:"signatures"`

	// Semantic detector worker pool
	Semantic semantic.Config `json:"semantic" yaml:"semantic"`

	// Model response cache
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Source loading
	Source source.Config `json:"source" yaml:"source"`

	// Logging
	Log LogConfig `json:"log" yaml:"log"`
}

// CacheConfig controls the model response cache. An empty path keeps the
// cache in memory for the run.
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// DefaultConfig returns a configuration with the built-in prompts.
func DefaultConfig() *Config {
	prompts := semantic.DefaultPrompts()
	return &Config{
		SystemPrompt:   prompts.SystemPrompt,
		AnalysisPrompt: prompts.AnalysisPrompt,
		LLM:            llm.DefaultConfig(),
		Chunk:          chunk.DefaultConfig(),
		Pattern:        pattern.DefaultConfig(),
		Signatures:     normalize.SignatureConfig{},
		Semantic:       semantic.DefaultConfig(),
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".jalapi/cache.db",
		},
		Source: source.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Prompts returns the prompt pair for the semantic detector.
func (c *Config) Prompts() semantic.PromptConfig {
	return semantic.PromptConfig{
		SystemPrompt:   c.SystemPrompt,
		AnalysisPrompt: c.AnalysisPrompt,
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON). Sections the
// file omits keep their defaults, but both prompts must be present.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(path, "failed to read config file", err)
	}

	config := DefaultConfig()
	config.SystemPrompt = ""
	config.AnalysisPrompt = ""

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jerr := json.Unmarshal(data, config); jerr != nil {
			return nil, apperrors.NewConfigError(path, "failed to parse config file", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigError(path, err.Error(), err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration. Provider settings are checked only
// when the semantic detector is enabled.
func (c *Config) Validate() error {
	if err := c.Prompts().Validate(); err != nil {
		return err
	}

	if err := c.Chunk.Validate(); err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	if c.Pattern.ContextWindow < 0 {
		return fmt.Errorf("pattern: context_window must not be negative")
	}

	if c.Semantic.Enabled {
		if err := c.Semantic.Validate(); err != nil {
			return fmt.Errorf("semantic: %w", err)
		}
		if err := c.LLM.Validate(); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}

	if c.Source.BeautifyThreshold < 0 {
		return fmt.Errorf("source: beautify_threshold must not be negative")
	}

	if c.Log.Level != "" {
		if _, err := logger.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
