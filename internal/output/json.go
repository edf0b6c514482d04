package output

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONWriter writes output in JSON format.
type JSONWriter struct {
	mu     sync.Mutex
	writer io.Writer
	pretty bool
	debug  bool
	closed bool
}

// NewJSONWriter creates a new JSON writer. Run metrics are written only
// when debug is set.
func NewJSONWriter(w io.Writer, pretty, debug bool) *JSONWriter {
	return &JSONWriter{
		writer: w,
		pretty: pretty,
		debug:  debug,
	}
}

// WriteResult writes the result as one JSON document followed by a
// newline. Paths are written unescaped, so query strings keep their '&'.
func (j *JSONWriter) WriteResult(result *Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	out := *result
	if !j.debug {
		out.Analysis.Metrics = nil
	}
	if out.Endpoints == nil {
		out.Endpoints = []Record{}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetEscapeHTML(false)
	if j.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

// Flush flushes the writer.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the writer.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if closer, ok := j.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
