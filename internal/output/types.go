package output

import (
	"time"

	"github.com/PentesterFlow/jalapi/internal/endpoint"
	"github.com/PentesterFlow/jalapi/internal/fusion"
	"github.com/PentesterFlow/jalapi/internal/metrics"
)

// Result is the complete outcome of analyzing one source file.
type Result struct {
	Source    string         `json:"source"`
	Summary   fusion.Summary `json:"summary"`
	Endpoints []Record       `json:"endpoints"`
	Analysis  Analysis       `json:"analysis"`
}

// Analysis describes the run that produced a Result.
type Analysis struct {
	RunID        string            `json:"run_id"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  time.Time         `json:"completed_at"`
	Duration     string            `json:"duration"`
	Model        string            `json:"model,omitempty"`
	LLMEnabled   bool              `json:"llm_enabled"`
	Chunks       int               `json:"chunks"`
	FailedChunks int               `json:"failed_chunks"`
	Errors       []ChunkError      `json:"errors,omitempty"`
	Metrics      *metrics.Snapshot `json:"metrics,omitempty"`
}

// ChunkError records a chunk the semantic detector could not analyze.
type ChunkError struct {
	Chunk     int    `json:"chunk"`
	StartLine int    `json:"start_line"`
	Type      string `json:"type"`
	Error     string `json:"error"`
}

// Record is the serialized form of an endpoint.
type Record struct {
	Path         string      `json:"path"`
	Method       string      `json:"method"`
	Detector     string      `json:"detector"`
	Confidence   float64     `json:"confidence"`
	Line         int         `json:"line_number,omitempty"`
	UsageContext string      `json:"usage_context,omitempty"`
	Auth         *AuthRecord `json:"auth,omitempty"`
}

// AuthRecord is present only on endpoints that require authentication.
type AuthRecord struct {
	Required bool   `json:"required"`
	Type     string `json:"type,omitempty"`
	Location string `json:"location,omitempty"`
}

// NewRecord converts an endpoint for output.
func NewRecord(e endpoint.Endpoint) Record {
	r := Record{
		Path:         e.Path,
		Method:       e.Method,
		Detector:     e.Detector,
		Confidence:   e.Confidence,
		Line:         e.Line,
		UsageContext: e.Context,
	}
	if e.Auth.Required {
		r.Auth = &AuthRecord{
			Required: true,
			Type:     e.Auth.Type,
			Location: e.Auth.Location,
		}
	}
	return r
}

// NewRecords converts endpoints for output, preserving order. The result is
// never nil so an empty set serializes as [].
func NewRecords(endpoints []endpoint.Endpoint) []Record {
	out := make([]Record, 0, len(endpoints))
	for _, e := range endpoints {
		out = append(out, NewRecord(e))
	}
	return out
}
