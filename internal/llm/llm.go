// Package llm is the language-model capability used by the semantic detector.
// A Completer turns one prompt into one text reply; providers, caching and
// pacing are layered as Completer wrappers.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/logger"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "claude-3-5-sonnet-20241022"

// Message is one prior turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	Model       string
	System      string
	History     []Message
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the text reply to a Request.
type Response struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
	Cached       bool
}

// Completer issues completion requests. Implementations must be safe for
// concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Config configures a provider client.
type Config struct {
	Provider          string        `json:"provider" yaml:"provider"`
	Model             string        `json:"model" yaml:"model"`
	BaseURL           string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKeyEnv         string        `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	MaxTokens         int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature       float64       `json:"temperature" yaml:"temperature"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries        int           `json:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `json:"retry_delay" yaml:"retry_delay"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`

	// OnRetry is called before every retry of a failed request.
	OnRetry func(attempt int, err error) `json:"-" yaml:"-"`
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderAnthropic,
		Model:             DefaultModel,
		MaxTokens:         4096,
		Temperature:       0,
		Timeout:           120 * time.Second,
		MaxRetries:        2,
		RetryDelay:        time.Second,
		RequestsPerSecond: 2,
		Burst:             2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// keyEnv returns the environment variable holding the API key.
func (c Config) keyEnv() string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	if strings.EqualFold(c.Provider, ProviderOpenAI) {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// New builds the provider client named by cfg.Provider. The API key is read
// from the configured environment variable.
func New(cfg Config, log *logger.Logger) (Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("llm", err.Error(), err)
	}

	env := cfg.keyEnv()
	key := os.Getenv(env)
	if key == "" {
		return nil, apperrors.NewConfigError("llm", fmt.Sprintf("environment variable %s is not set", env), nil)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAI(cfg, key, log), nil
	default:
		return NewAnthropic(cfg, key, log), nil
	}
}

// fill applies client defaults to fields the caller left empty.
func (c Config) fill(req Request) Request {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.Temperature
	}
	return req
}

func retrierFor(cfg Config, log *logger.Logger) *apperrors.Retrier {
	rc := apperrors.DefaultRetryConfig()
	rc.MaxRetries = cfg.MaxRetries
	if cfg.RetryDelay > 0 {
		rc.InitialDelay = cfg.RetryDelay
	}
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Event(logger.WarnLevel).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("error", apperrors.Summary(err)).
			Msg("Retrying model request")
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
	}
	return apperrors.NewRetrier(rc)
}
