package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/PentesterFlow/jalapi/internal/endpoint"
)

// TextWriter writes a human-readable report.
type TextWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
	under  io.Writer
	closed bool
}

// NewTextWriter creates a new text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{
		writer: bufio.NewWriter(w),
		under:  w,
	}
}

// WriteResult writes the summary followed by the endpoints grouped by
// detector, combined findings first.
func (t *TextWriter) WriteResult(result *Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	w := t.writer
	s := result.Summary
	a := result.Analysis

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Analysis Summary:")
	fmt.Fprintf(w, "  Source:             %s\n", result.Source)
	fmt.Fprintf(w, "  Total Endpoints:    %d\n", s.Total)
	fmt.Fprintf(w, "  Found by Regex:     %d\n", s.RegexFindings)
	fmt.Fprintf(w, "  Found by LLM:       %d\n", s.LLMFindings)
	fmt.Fprintf(w, "  Found by Both:      %d\n", s.CombinedFindings)
	fmt.Fprintf(w, "  Requiring Auth:     %d\n", s.EndpointsWithAuth)
	if a.LLMEnabled {
		fmt.Fprintf(w, "  Chunks Analyzed:    %d (%d failed)\n", a.Chunks, a.FailedChunks)
	}
	if a.Duration != "" {
		fmt.Fprintf(w, "  Duration:           %s\n", a.Duration)
	}

	for _, g := range groupByDetector(result.Endpoints) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Detector: %s (%d)\n", g.detector, len(g.records))
		for _, r := range g.records {
			writeRecord(w, r)
		}
	}

	if len(a.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed Chunks:")
		for _, e := range a.Errors {
			fmt.Fprintf(w, "  chunk %d (line %d) [%s]: %s\n", e.Chunk, e.StartLine, e.Type, e.Error)
		}
	}

	return w.Flush()
}

func writeRecord(w io.Writer, r Record) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Path:       %s\n", r.Path)
	fmt.Fprintf(w, "  Method:     %s\n", r.Method)
	fmt.Fprintf(w, "  Confidence: %.2f\n", r.Confidence)
	if r.Line > 0 {
		fmt.Fprintf(w, "  Line:       %d\n", r.Line)
	}
	if r.Auth != nil {
		fmt.Fprint(w, "  Auth:       required")
		if r.Auth.Type != "" {
			fmt.Fprintf(w, " (%s", r.Auth.Type)
			if r.Auth.Location != "" {
				fmt.Fprintf(w, " in %s", r.Auth.Location)
			}
			fmt.Fprint(w, ")")
		}
		fmt.Fprintln(w)
	}
}

type detectorGroup struct {
	detector string
	records  []Record
}

func groupByDetector(records []Record) []detectorGroup {
	index := make(map[string]int)
	var groups []detectorGroup
	for _, r := range records {
		i, ok := index[r.Detector]
		if !ok {
			i = len(groups)
			index[r.Detector] = i
			groups = append(groups, detectorGroup{detector: r.Detector})
		}
		groups[i].records = append(groups[i].records, r)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := detectorRank(groups[i].detector), detectorRank(groups[j].detector)
		if ri != rj {
			return ri < rj
		}
		return groups[i].detector < groups[j].detector
	})
	return groups
}

func detectorRank(d string) int {
	switch {
	case len(endpoint.ParseDetectors(d)) > 1:
		return 0
	case d == endpoint.DetectorRegex:
		return 1
	case d == endpoint.DetectorLLM:
		return 2
	default:
		return 3
	}
}

// Flush flushes the writer.
func (t *TextWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writer.Flush()
}

// Close flushes and closes the underlying writer.
func (t *TextWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.writer.Flush(); err != nil {
		return err
	}
	if closer, ok := t.under.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
