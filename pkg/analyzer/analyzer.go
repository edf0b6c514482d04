// Package analyzer runs the endpoint discovery pipeline over a source file:
// pattern and semantic detection side by side, then fusion and summary.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PentesterFlow/jalapi/internal/chunk"
	"github.com/PentesterFlow/jalapi/internal/endpoint"
	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/fusion"
	"github.com/PentesterFlow/jalapi/internal/llm"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/metrics"
	"github.com/PentesterFlow/jalapi/internal/normalize"
	"github.com/PentesterFlow/jalapi/internal/output"
	"github.com/PentesterFlow/jalapi/internal/pattern"
	"github.com/PentesterFlow/jalapi/internal/ratelimit"
	"github.com/PentesterFlow/jalapi/internal/semantic"
	"github.com/PentesterFlow/jalapi/internal/source"
)

// Result is the outcome of one analysis run.
type Result = output.Result

// minRateFactor is the fraction of the configured request rate the adaptive
// limiter may back off to.
const minRateFactor = 0.1

// Analyzer is the pipeline orchestrator. Run may be called repeatedly and
// concurrently; Close releases the response cache.
type Analyzer struct {
	config    *Config
	logger    *logger.Logger
	metrics   *metrics.Collector
	completer llm.Completer
	store     llm.Store
	limiter   *ratelimit.AdaptiveRateLimiter
	observer  semantic.Observer

	loader   *source.Loader
	pattern  *pattern.Detector
	chunker  *chunk.Chunker
	semantic *semantic.Detector

	closed atomic.Bool
}

// progressStarter is implemented by observers that want the chunk total.
type progressStarter interface {
	Start(source string, total int)
}

// New creates a new analyzer with the given options.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		config: DefaultConfig(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Validate config
	if err := a.config.Validate(); err != nil {
		return nil, apperrors.NewConfigError("analyzer", "invalid configuration: "+err.Error(), err)
	}

	if a.logger == nil {
		a.logger = logger.NewNamed(a.config.Log.Level, a.config.Log.Pretty, os.Stderr)
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}

	if err := a.initialize(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// initialize sets up all pipeline components.
func (a *Analyzer) initialize() error {
	cfg := a.config

	signatures, err := normalize.Build(cfg.Signatures)
	if err != nil {
		return apperrors.NewConfigError("signatures", err.Error(), err)
	}

	a.pattern, err = pattern.New(cfg.Pattern, signatures, a.logger)
	if err != nil {
		return apperrors.NewConfigError("pattern", err.Error(), err)
	}

	a.chunker, err = chunk.New(cfg.Chunk)
	if err != nil {
		return apperrors.NewConfigError("chunk", err.Error(), err)
	}

	a.loader = source.NewLoader(cfg.Source, a.logger)

	if !cfg.Semantic.Enabled {
		a.logger.Info("Semantic detector disabled, running pattern detection only")
		return nil
	}

	completer, err := a.buildCompleter()
	if err != nil {
		return err
	}

	opts := []semantic.Option{
		semantic.WithModel(cfg.LLM.Model),
		semantic.WithMetrics(a.metrics),
	}
	if a.observer != nil {
		opts = append(opts, semantic.WithObserver(a.observer))
	}
	a.semantic, err = semantic.New(completer, cfg.Prompts(), cfg.Semantic, a.logger, opts...)
	if err != nil {
		return apperrors.NewConfigError("semantic", err.Error(), err)
	}
	return nil
}

// buildCompleter assembles cache → pacing → provider. Cache hits never
// wait on the limiter.
func (a *Analyzer) buildCompleter() (llm.Completer, error) {
	cfg := a.config.LLM
	cfg.OnRetry = func(int, error) { a.metrics.RecordRetry() }

	completer := a.completer
	if completer == nil {
		var err error
		completer, err = llm.New(cfg, a.logger)
		if err != nil {
			return nil, err
		}
	}

	if cfg.RequestsPerSecond > 0 {
		a.limiter = ratelimit.NewAdaptiveRateLimiter(cfg.RequestsPerSecond*minRateFactor, cfg.RequestsPerSecond, cfg.Burst)
		completer = llm.NewPaced(completer, a.limiter)
	}

	if a.config.Cache.Enabled {
		if a.config.Cache.Path == "" {
			a.store = llm.NewMemoryStore()
		} else {
			store, err := llm.NewBoltStore(a.config.Cache.Path)
			if err != nil {
				return nil, apperrors.NewConfigError(a.config.Cache.Path, "failed to open response cache", err)
			}
			a.store = store
		}
		completer = llm.NewCached(completer, a.store, a.logger)
	}

	return completer, nil
}

// Run analyzes the file at path. Only configuration, source and
// cancellation errors are returned; failed chunks are reported in the
// result.
func (a *Analyzer) Run(ctx context.Context, path string) (*Result, error) {
	if a.closed.Load() {
		return nil, apperrors.NewCancelledError(path, "run")
	}

	runID := uuid.NewString()
	started := time.Now()
	log := a.logger.WithRun(runID, path)

	src, err := a.loader.Load(path)
	if err != nil {
		log.ErrorEvent(err, path, "load")
		return nil, err
	}
	log.Event(logger.InfoLevel).
		Int("bytes", len(src.Text)).
		Str("encoding", src.Encoding).
		Bool("beautified", src.Beautified).
		Msg("Source loaded")

	var (
		regex  []endpoint.Endpoint
		report semantic.Report
		chunks []chunk.Chunk
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		regex = a.pattern.Detect(src.Text)
		a.metrics.RecordCandidates(endpoint.DetectorRegex, len(regex))
		return nil
	})
	if a.semantic != nil {
		g.Go(func() error {
			chunks = a.chunker.Split(src.Text)
			if s, ok := a.observer.(progressStarter); ok {
				s.Start(path, len(chunks))
			}
			log.Event(logger.DebugLevel).Int("chunks", len(chunks)).Msg("Source chunked")
			report = a.semantic.Analyze(ctx, chunks)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn("Analysis cancelled")
		return nil, apperrors.Categorize(err, path)
	}

	// Pattern candidates are added first and survive confidence ties.
	fuser := fusion.New(log)
	fuser.AddAll(regex)
	fuser.AddAll(report.Endpoints)
	endpoints := fuser.Endpoints()

	summary := fusion.Summarize(endpoints, log)
	a.metrics.SetEndpointsFused(len(endpoints))

	completed := time.Now()
	result := &Result{
		Source:    path,
		Summary:   summary,
		Endpoints: output.NewRecords(endpoints),
		Analysis: output.Analysis{
			RunID:        runID,
			StartedAt:    started,
			CompletedAt:  completed,
			Duration:     completed.Sub(started).Round(time.Millisecond).String(),
			LLMEnabled:   a.semantic != nil,
			Chunks:       len(chunks),
			FailedChunks: report.Failed,
			Errors:       chunkErrors(report.Results),
			Metrics:      a.metrics.Snapshot(),
		},
	}
	if a.semantic != nil {
		result.Analysis.Model = a.config.LLM.Model
	}

	stats := summary.Map()
	for k, v := range result.Analysis.Metrics.Summary() {
		stats[k] = v
	}
	stats["merges"] = fuser.Merges()
	if a.limiter != nil {
		ls := a.limiter.Stats()
		stats["rate_limit_waits"] = ls.Waits
		stats["rate_limit_wait"] = ls.TotalWait.String()
		stats["request_rate"] = a.limiter.CurrentRate()
	}
	log.StatsEvent(stats)

	return result, nil
}

func chunkErrors(results []semantic.ChunkResult) []output.ChunkError {
	var out []output.ChunkError
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		out = append(out, output.ChunkError{
			Chunk:     r.Index,
			StartLine: r.StartLine,
			Type:      apperrors.GetErrorType(r.Err).String(),
			Error:     apperrors.Summary(r.Err),
		})
	}
	return out
}

// Config returns a copy of the configuration in use.
func (a *Analyzer) Config() *Config {
	return a.config.Clone()
}

// Metrics returns the metrics collector.
func (a *Analyzer) Metrics() *metrics.Collector {
	return a.metrics
}

// Close releases the response cache. It is safe to call more than once.
func (a *Analyzer) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
