package analyzer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/semantic"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// ============================================================================
// DefaultConfig Tests
// ============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	prompts := semantic.DefaultPrompts()
	if cfg.SystemPrompt != prompts.SystemPrompt || cfg.AnalysisPrompt != prompts.AnalysisPrompt {
		t.Error("DefaultConfig() should carry the built-in prompts")
	}
	if !cfg.Semantic.Enabled {
		t.Error("Semantic.Enabled = false, want true")
	}
	if cfg.Semantic.Workers != semantic.DefaultWorkers {
		t.Errorf("Semantic.Workers = %d, want %d", cfg.Semantic.Workers, semantic.DefaultWorkers)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path == "" {
		t.Errorf("Cache = %+v, want enabled with a path", cfg.Cache)
	}
	if !cfg.Source.Beautify {
		t.Error("Source.Beautify = false, want true")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
}

// ============================================================================
// Validate Tests
// ============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing system prompt",
			modify:  func(c *Config) { c.SystemPrompt = "" },
			wantErr: true,
		},
		{
			name:    "blank analysis prompt",
			modify:  func(c *Config) { c.AnalysisPrompt = "   " },
			wantErr: true,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Semantic.Workers = 0 },
			wantErr: true,
		},
		{
			name: "zero workers with semantic disabled",
			modify: func(c *Config) {
				c.Semantic.Workers = 0
				c.Semantic.Enabled = false
			},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.LLM.Provider = "bogus" },
			wantErr: true,
		},
		{
			name: "unknown provider with semantic disabled",
			modify: func(c *Config) {
				c.LLM.Provider = "bogus"
				c.Semantic.Enabled = false
			},
			wantErr: false,
		},
		{
			name:    "zero chunk size",
			modify:  func(c *Config) { c.Chunk.MaxSize = 0 },
			wantErr: true,
		},
		{
			name:    "negative context window",
			modify:  func(c *Config) { c.Pattern.ContextWindow = -1 },
			wantErr: true,
		},
		{
			name:    "negative beautify threshold",
			modify:  func(c *Config) { c.Source.BeautifyThreshold = -1 },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// LoadFromFile Tests
// ============================================================================

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
system_prompt: "You find API endpoints."
analysis_prompt: "Code: {code_chunk} Context: {context}"
llm:
  provider: openai
  model: gpt-4o
  timeout: 30s
semantic:
  enabled: true
  workers: 8
  chunk_timeout: 90s
signatures:
  extended: true
  extra:
    - "/internal/"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.SystemPrompt != "You find API endpoints." {
		t.Errorf("SystemPrompt = %q", cfg.SystemPrompt)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM = %s/%s, want openai/gpt-4o", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("LLM.Timeout = %v, want 30s", cfg.LLM.Timeout)
	}
	if cfg.Semantic.Workers != 8 || cfg.Semantic.ChunkTimeout != 90*time.Second {
		t.Errorf("Semantic = %+v", cfg.Semantic)
	}
	if !cfg.Signatures.Extended || len(cfg.Signatures.Extra) != 1 {
		t.Errorf("Signatures = %+v", cfg.Signatures)
	}

	// Sections the file omits keep their defaults.
	def := DefaultConfig()
	if cfg.Chunk.MaxSize != def.Chunk.MaxSize || cfg.Chunk.Overlap != def.Chunk.Overlap {
		t.Errorf("Chunk = %+v, want defaults", cfg.Chunk)
	}
	if cfg.LLM.MaxTokens != def.LLM.MaxTokens {
		t.Errorf("LLM.MaxTokens = %d, want default", cfg.LLM.MaxTokens)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "system_prompt": "sys",
  "analysis_prompt": "{code_chunk}",
  "semantic": {"enabled": false, "workers": 2, "chunk_timeout": 1000000000}
}`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.SystemPrompt != "sys" || cfg.AnalysisPrompt != "{code_chunk}" {
		t.Errorf("prompts = %q / %q", cfg.SystemPrompt, cfg.AnalysisPrompt)
	}
	if cfg.Semantic.Enabled {
		t.Error("Semantic.Enabled = true, want false")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing prompts", "llm:\n  model: x\n"},
		{"missing analysis prompt", "system_prompt: sys\n"},
		{"malformed", "system_prompt: [unclosed\n"},
		{"invalid values", "system_prompt: s\nanalysis_prompt: a\nsemantic:\n  workers: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.body)

			_, err := LoadFromFile(path)
			if err == nil {
				t.Fatal("LoadFromFile() error = nil, want error")
			}
			if got := apperrors.GetErrorType(err); got != apperrors.Config {
				t.Errorf("GetErrorType() = %v, want %v", got, apperrors.Config)
			}
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() error = nil, want error")
	}
	if got := apperrors.GetErrorType(err); got != apperrors.Config {
		t.Errorf("GetErrorType() = %v, want %v", got, apperrors.Config)
	}
}

// ============================================================================
// SaveToFile / Clone Tests
// ============================================================================

func TestConfig_SaveToFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LLM.Model = "custom-model"
			cfg.Semantic.Workers = 7
			cfg.Semantic.ChunkTimeout = 45 * time.Second

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile() error = %v", err)
			}

			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}
			if loaded.LLM.Model != "custom-model" {
				t.Errorf("LLM.Model = %s, want custom-model", loaded.LLM.Model)
			}
			if loaded.Semantic.Workers != 7 || loaded.Semantic.ChunkTimeout != 45*time.Second {
				t.Errorf("Semantic = %+v", loaded.Semantic)
			}
			if loaded.AnalysisPrompt != cfg.AnalysisPrompt {
				t.Error("AnalysisPrompt did not survive the round trip")
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Signatures.Extra = []string{"/a/"}

	clone := cfg.Clone()
	clone.LLM.Model = "other"
	clone.Signatures.Extra[0] = "/b/"

	if cfg.LLM.Model == "other" {
		t.Error("Clone() shares LLM config")
	}
	if cfg.Signatures.Extra[0] != "/a/" {
		t.Error("Clone() shares slices")
	}
	if clone.Semantic != cfg.Semantic {
		t.Errorf("Clone().Semantic = %+v, want %+v", clone.Semantic, cfg.Semantic)
	}
}
