package analyzer

import (
	"time"

	"github.com/PentesterFlow/jalapi/internal/llm"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/metrics"
	"github.com/PentesterFlow/jalapi/internal/semantic"
)

// Option is a functional option for configuring the Analyzer.
type Option func(*Analyzer) error

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(a *Analyzer) error {
		a.config = config.Clone()
		return nil
	}
}

// WithPrompts sets the system and analysis prompts.
func WithPrompts(system, analysis string) Option {
	return func(a *Analyzer) error {
		a.config.SystemPrompt = system
		a.config.AnalysisPrompt = analysis
		return nil
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(a *Analyzer) error {
		a.config.LLM.Model = model
		return nil
	}
}

// WithProvider sets the model provider.
func WithProvider(provider string) Option {
	return func(a *Analyzer) error {
		a.config.LLM.Provider = provider
		return nil
	}
}

// WithWorkers sets the number of concurrent chunk requests.
func WithWorkers(n int) Option {
	return func(a *Analyzer) error {
		if n < 1 {
			n = 1
		}
		a.config.Semantic.Workers = n
		return nil
	}
}

// WithChunkTimeout bounds every chunk request.
func WithChunkTimeout(timeout time.Duration) Option {
	return func(a *Analyzer) error {
		a.config.Semantic.ChunkTimeout = timeout
		return nil
	}
}

// WithChunkSize sets the chunk size and overlap in characters.
func WithChunkSize(maxSize, overlap int) Option {
	return func(a *Analyzer) error {
		a.config.Chunk.MaxSize = maxSize
		a.config.Chunk.Overlap = overlap
		return nil
	}
}

// WithRateLimit sets the model request pacing. A non-positive rate disables
// pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *Analyzer) error {
		a.config.LLM.RequestsPerSecond = rps
		a.config.LLM.Burst = burst
		return nil
	}
}

// WithSemantic enables or disables the semantic detector.
func WithSemantic(enabled bool) Option {
	return func(a *Analyzer) error {
		a.config.Semantic.Enabled = enabled
		return nil
	}
}

// WithCache enables the response cache at path. An empty path caches in
// memory.
func WithCache(enabled bool, path string) Option {
	return func(a *Analyzer) error {
		a.config.Cache.Enabled = enabled
		a.config.Cache.Path = path
		return nil
	}
}

// WithExtendedSignatures enables the extended signature set.
func WithExtendedSignatures(enabled bool) Option {
	return func(a *Analyzer) error {
		a.config.Signatures.Extended = enabled
		return nil
	}
}

// WithBeautify enables or disables beautification of minified sources.
func WithBeautify(enabled bool) Option {
	return func(a *Analyzer) error {
		a.config.Source.Beautify = enabled
		return nil
	}
}

// WithCompleter supplies the model client instead of building one from the
// provider configuration. Pacing and caching still wrap it.
func WithCompleter(c llm.Completer) Option {
	return func(a *Analyzer) error {
		a.completer = c
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Analyzer) error {
		a.logger = l
		return nil
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level logger.Level) Option {
	return func(a *Analyzer) error {
		a.config.Log.Level = level.String()
		return nil
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(a *Analyzer) error {
		a.metrics = m
		return nil
	}
}

// WithObserver reports chunk progress to o.
func WithObserver(o semantic.Observer) Option {
	return func(a *Analyzer) error {
		a.observer = o
		return nil
	}
}
