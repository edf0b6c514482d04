// Package semantic finds endpoints by asking a language model about each
// chunk of the source.
package semantic

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PentesterFlow/jalapi/internal/chunk"
	"github.com/PentesterFlow/jalapi/internal/endpoint"
	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/llm"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/metrics"
)

// Defaults.
const (
	DefaultWorkers      = 4
	DefaultChunkTimeout = 3 * time.Minute
)

// Config configures the semantic pass.
type Config struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Workers      int           `json:"workers" yaml:"workers"`
	ChunkTimeout time.Duration `json:"chunk_timeout" yaml:"chunk_timeout"`
}

// DefaultConfig returns the default semantic configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Workers:      DefaultWorkers,
		ChunkTimeout: DefaultChunkTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkTimeout <= 0 {
		return fmt.Errorf("chunk_timeout must be positive")
	}
	return nil
}

// ChunkResult is the outcome of one chunk. Err is set when the chunk
// contributed nothing because the request or its reply failed.
type ChunkResult struct {
	Index     int
	StartLine int
	Endpoints []endpoint.Endpoint
	Skipped   int
	Err       error
}

// Failed reports whether the chunk failed.
func (r ChunkResult) Failed() bool {
	return r.Err != nil
}

// Report is the outcome of a semantic pass.
type Report struct {
	Endpoints []endpoint.Endpoint
	Results   []ChunkResult
	Failed    int
}

// Observer is told about every finished chunk.
type Observer interface {
	ChunkDone(failed bool, endpoints int)
}

// Detector runs the semantic pass. It is safe for concurrent use.
type Detector struct {
	completer llm.Completer
	prompts   PromptConfig
	cfg       Config
	model     string
	log       *logger.Logger
	metrics   *metrics.Collector
	observer  Observer
}

// Option configures a Detector.
type Option func(*Detector)

// WithModel sets the model named in every request. An empty model leaves the
// choice to the provider client.
func WithModel(model string) Option {
	return func(d *Detector) {
		d.model = model
	}
}

// WithMetrics records request and chunk counters in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Detector) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithObserver reports chunk completion to o.
func WithObserver(o Observer) Option {
	return func(d *Detector) {
		d.observer = o
	}
}

// New creates a Detector.
func New(completer llm.Completer, prompts PromptConfig, cfg Config, log *logger.Logger, opts ...Option) (*Detector, error) {
	if completer == nil {
		return nil, fmt.Errorf("semantic detector requires a completer")
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		completer: completer,
		prompts:   prompts,
		cfg:       cfg,
		log:       logger.OrNop(log).WithComponent("semantic"),
		metrics:   metrics.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Analyze sends every chunk to the model on a bounded worker pool. A failed
// chunk contributes no endpoints and never stops the others. Endpoints are
// returned in chunk order.
func (d *Detector) Analyze(ctx context.Context, chunks []chunk.Chunk) Report {
	results := make([]ChunkResult, len(chunks))
	d.metrics.SetChunksTotal(len(chunks))

	g := new(errgroup.Group)
	g.SetLimit(d.cfg.Workers)
	for i, c := range chunks {
		g.Go(func() error {
			results[i] = d.analyzeChunk(ctx, c)
			return nil
		})
	}
	g.Wait()

	report := Report{Results: results}
	for _, r := range results {
		if r.Failed() {
			report.Failed++
			continue
		}
		report.Endpoints = append(report.Endpoints, r.Endpoints...)
	}

	d.log.Event(logger.InfoLevel).
		Int("chunks", len(chunks)).
		Int("failed", report.Failed).
		Int("endpoints", len(report.Endpoints)).
		Msg("Semantic analysis complete")

	return report
}

func (d *Detector) analyzeChunk(ctx context.Context, c chunk.Chunk) ChunkResult {
	result := ChunkResult{Index: c.Index, StartLine: c.StartLine}
	log := d.log.WithChunk(c.Index, c.StartLine)

	defer func() {
		d.metrics.RecordChunk(result.Failed())
		if d.observer != nil {
			d.observer.ChunkDone(result.Failed(), len(result.Endpoints))
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = apperrors.Categorize(err, d.target(c))
		return result
	}

	chunkCtx, cancel := context.WithTimeout(ctx, d.cfg.ChunkTimeout)
	defer cancel()

	log.ChunkEvent(logger.DebugLevel, c.Index, c.StartLine, len(c.Text)).Msg("Analyzing chunk")

	start := time.Now()
	resp, err := d.completer.Complete(chunkCtx, llm.Request{
		Model:  d.model,
		System: d.prompts.SystemPrompt,
		Prompt: d.prompts.Render(c),
	})
	if err != nil {
		result.Err = d.fail(log, c, apperrors.Categorize(err, d.target(c)))
		return result
	}
	d.metrics.RecordRequest(time.Since(start), resp.InputTokens, resp.OutputTokens, resp.Cached)

	records, skipped, err := ParseResponse(resp.Text)
	if err != nil {
		result.Err = d.fail(log, c, apperrors.NewResponseError(d.target(c), err.Error(), err))
		return result
	}

	result.Skipped = skipped
	d.metrics.RecordSkipped(skipped)

	result.Endpoints = make([]endpoint.Endpoint, 0, len(records))
	for _, rec := range records {
		ep := rec.Endpoint(c.StartLine)
		log.DetectionEvent(ep.Detector, ep.Method, ep.Path, ep.Line)
		result.Endpoints = append(result.Endpoints, ep)
	}
	d.metrics.RecordCandidates(endpoint.DetectorLLM, len(result.Endpoints))

	log.ChunkEvent(logger.DebugLevel, c.Index, c.StartLine, len(c.Text)).
		Int("endpoints", len(result.Endpoints)).
		Int("skipped", skipped).
		Bool("cached", resp.Cached).
		Msg("Chunk analyzed")

	return result
}

func (d *Detector) fail(log *logger.Logger, c chunk.Chunk, err *apperrors.AnalysisError) error {
	d.metrics.RecordError(err.Type.String())
	log.ChunkEvent(logger.ErrorLevel, c.Index, c.StartLine, len(c.Text)).
		Str("error_type", err.Type.String()).
		Err(err).
		Msg("Chunk analysis failed")
	return err
}

func (d *Detector) target(c chunk.Chunk) string {
	return fmt.Sprintf("chunk %d", c.Index)
}
