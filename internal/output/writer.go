// Package output renders analysis results.
package output

import (
	"io"
	"os"
	"path/filepath"
)

// Formats accepted by NewWriter.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Writer defines the interface for output writers.
type Writer interface {
	// WriteResult writes the complete analysis result
	WriteResult(result *Result) error

	// Flush flushes any buffered output
	Flush() error

	// Close closes the writer
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format string
	Pretty bool
	Debug  bool // keep run metrics in the output
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, config Config) Writer {
	switch config.Format {
	case FormatText:
		return NewTextWriter(w)
	default:
		return NewJSONWriter(w, config.Pretty, config.Debug)
	}
}

// WriteFile saves result to path as indented JSON, creating parent
// directories as needed.
func WriteFile(path string, result *Result, debug bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := NewJSONWriter(f, true, debug)
	if err := w.WriteResult(result); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
