// Package metrics collects counters for a single analysis run.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates metrics. All methods are safe for
// concurrent use.
type Collector struct {
	// Chunks
	chunksTotal    atomic.Int64
	chunksAnalyzed atomic.Int64
	chunksFailed   atomic.Int64

	// Model requests
	llmRequests  atomic.Int64
	cacheHits    atomic.Int64
	retriesTotal atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64

	// Findings
	regexCandidates atomic.Int64
	llmCandidates   atomic.Int64
	recordsSkipped  atomic.Int64
	endpointsFused  atomic.Int64

	// Latency tracking
	latencySum atomic.Int64
	latencyNum atomic.Int64

	// Histogram buckets for request latency in ms:
	// <100, <250, <500, <1000, <2500, <5000, <10000, <30000, <60000, >=60000
	latencyBuckets [10]atomic.Int64

	// Error breakdown
	errorCounts map[string]*atomic.Int64
	errorMu     sync.RWMutex

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// SetChunksTotal records how many chunks the run will analyze.
func (c *Collector) SetChunksTotal(n int) {
	c.chunksTotal.Store(int64(n))
}

// RecordChunk records a finished chunk.
func (c *Collector) RecordChunk(failed bool) {
	if failed {
		c.chunksFailed.Add(1)
		return
	}
	c.chunksAnalyzed.Add(1)
}

// RecordRequest records one completed model request.
func (c *Collector) RecordRequest(latency time.Duration, inputTokens, outputTokens int, cached bool) {
	c.llmRequests.Add(1)
	if cached {
		c.cacheHits.Add(1)
		return
	}
	c.inputTokens.Add(int64(inputTokens))
	c.outputTokens.Add(int64(outputTokens))

	ms := latency.Milliseconds()
	c.latencySum.Add(ms)
	c.latencyNum.Add(1)
	c.latencyBuckets[bucket(ms)].Add(1)
}

func bucket(ms int64) int {
	switch {
	case ms < 100:
		return 0
	case ms < 250:
		return 1
	case ms < 500:
		return 2
	case ms < 1000:
		return 3
	case ms < 2500:
		return 4
	case ms < 5000:
		return 5
	case ms < 10000:
		return 6
	case ms < 30000:
		return 7
	case ms < 60000:
		return 8
	default:
		return 9
	}
}

// RecordError records an error by type name.
func (c *Collector) RecordError(errorType string) {
	c.errorMu.Lock()
	if c.errorCounts[errorType] == nil {
		c.errorCounts[errorType] = &atomic.Int64{}
	}
	c.errorCounts[errorType].Add(1)
	c.errorMu.Unlock()
}

// RecordRetry records a retry attempt.
func (c *Collector) RecordRetry() {
	c.retriesTotal.Add(1)
}

// RecordCandidates records candidates emitted by a detector.
func (c *Collector) RecordCandidates(detector string, n int) {
	switch detector {
	case "regex":
		c.regexCandidates.Add(int64(n))
	case "llm":
		c.llmCandidates.Add(int64(n))
	}
}

// RecordSkipped records model records dropped for lacking a usable path.
func (c *Collector) RecordSkipped(n int) {
	c.recordsSkipped.Add(int64(n))
}

// SetEndpointsFused records the size of the canonical set.
func (c *Collector) SetEndpointsFused(n int) {
	c.endpointsFused.Store(int64(n))
}

// AverageLatency returns the mean latency of uncached requests.
func (c *Collector) AverageLatency() time.Duration {
	sum := c.latencySum.Load()
	num := c.latencyNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(sum/num) * time.Millisecond
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:       time.Now(),
		Elapsed:         time.Since(c.startTime),
		ChunksTotal:     c.chunksTotal.Load(),
		ChunksAnalyzed:  c.chunksAnalyzed.Load(),
		ChunksFailed:    c.chunksFailed.Load(),
		LLMRequests:     c.llmRequests.Load(),
		CacheHits:       c.cacheHits.Load(),
		RetriesTotal:    c.retriesTotal.Load(),
		InputTokens:     c.inputTokens.Load(),
		OutputTokens:    c.outputTokens.Load(),
		RegexCandidates: c.regexCandidates.Load(),
		LLMCandidates:   c.llmCandidates.Load(),
		RecordsSkipped:  c.recordsSkipped.Load(),
		EndpointsFused:  c.endpointsFused.Load(),
		AverageLatency:  c.AverageLatency(),
		ErrorCounts:     make(map[string]int64),
		LatencyHist:     make([]int64, len(c.latencyBuckets)),
	}

	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
		s.ErrorsTotal += v.Load()
	}
	c.errorMu.RUnlock()

	for i := range c.latencyBuckets {
		s.LatencyHist[i] = c.latencyBuckets[i].Load()
	}

	return s
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp       time.Time        `json:"timestamp"`
	Elapsed         time.Duration    `json:"elapsed"`
	ChunksTotal     int64            `json:"chunks_total"`
	ChunksAnalyzed  int64            `json:"chunks_analyzed"`
	ChunksFailed    int64            `json:"chunks_failed"`
	LLMRequests     int64            `json:"llm_requests"`
	CacheHits       int64            `json:"cache_hits"`
	RetriesTotal    int64            `json:"retries_total"`
	InputTokens     int64            `json:"input_tokens"`
	OutputTokens    int64            `json:"output_tokens"`
	RegexCandidates int64            `json:"regex_candidates"`
	LLMCandidates   int64            `json:"llm_candidates"`
	RecordsSkipped  int64            `json:"records_skipped"`
	EndpointsFused  int64            `json:"endpoints_fused"`
	ErrorsTotal     int64            `json:"errors_total"`
	AverageLatency  time.Duration    `json:"average_latency"`
	ErrorCounts     map[string]int64 `json:"error_counts"`
	LatencyHist     []int64          `json:"latency_histogram"`
}

// CacheHitRate returns the share of model requests served from cache.
func (s *Snapshot) CacheHitRate() float64 {
	if s.LLMRequests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.LLMRequests)
}

// Summary returns the fields worth logging at the end of a run.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"elapsed":          s.Elapsed.String(),
		"chunks_total":     s.ChunksTotal,
		"chunks_failed":    s.ChunksFailed,
		"llm_requests":     s.LLMRequests,
		"cache_hit_rate":   s.CacheHitRate(),
		"retries_total":    s.RetriesTotal,
		"regex_candidates": s.RegexCandidates,
		"llm_candidates":   s.LLMCandidates,
		"records_skipped":  s.RecordsSkipped,
		"endpoints_fused":  s.EndpointsFused,
		"errors_total":     s.ErrorsTotal,
		"avg_latency_ms":   s.AverageLatency.Milliseconds(),
	}
}
