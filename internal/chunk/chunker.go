// Package chunk splits large source files into overlapping segments sized for
// the semantic detector, each carrying the file's configuration context.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Defaults.
const (
	DefaultMaxSize     = 3000
	DefaultOverlap     = 1000
	DefaultSnippetSize = 500

	// ContextBanner prefixes the shared configuration context.
	ContextBanner = "IMPORTANT CONFIGURATION:\n"
)

// delimiters close a statement or block; chunk ends snap to just past one.
var delimiters = []string{"\n}", "\n});", "\n  });", "\n    });"}

// Config configures a Chunker.
type Config struct {
	MaxSize            int      `json:"max_size" yaml:"max_size"`
	Overlap            int      `json:"overlap" yaml:"overlap"`
	SnippetSize        int      `json:"snippet_size" yaml:"snippet_size"`
	ContextIdentifiers []string `json:"context_identifiers,omitempty" yaml:"context_identifiers,omitempty"`
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:            DefaultMaxSize,
		Overlap:            DefaultOverlap,
		SnippetSize:        DefaultSnippetSize,
		ContextIdentifiers: []string{"config", "api", "endpoints", "routes"},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive, got %d", c.MaxSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", c.Overlap)
	}
	if c.SnippetSize < 0 {
		return fmt.Errorf("snippet_size must not be negative, got %d", c.SnippetSize)
	}
	return nil
}

// Chunk is one segment of the source. Start and End are byte offsets.
type Chunk struct {
	Index     int
	Text      string
	Context   string
	Start     int
	End       int
	StartLine int
}

// Chunker splits source text. It is immutable and safe for concurrent use.
type Chunker struct {
	cfg       Config
	configDef *regexp.Regexp
}

// New creates a Chunker.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.ContextIdentifiers) == 0 {
		cfg.ContextIdentifiers = DefaultConfig().ContextIdentifiers
	}

	names := make([]string, len(cfg.ContextIdentifiers))
	for i, name := range cfg.ContextIdentifiers {
		names[i] = regexp.QuoteMeta(name)
	}
	expr := `(?i)\b(?:const|let|var)\s+(?:` + strings.Join(names, "|") + `)\s*=`

	return &Chunker{
		cfg:       cfg,
		configDef: regexp.MustCompile(expr),
	}, nil
}

// Split returns the chunks of source in order. Every byte of source lies in
// at least one chunk, start offsets strictly increase and the last chunk ends
// at len(source). Boundaries never split a UTF-8 sequence.
func (c *Chunker) Split(source string) []Chunk {
	if source == "" {
		return nil
	}

	context := c.ConfigContext(source)
	progress := c.progress()

	var chunks []Chunk
	newlines := 0 // newlines in source[:start]
	counted := 0
	for start := 0; start < len(source); {
		end := start + c.cfg.MaxSize
		if end >= len(source) {
			end = len(source)
		} else {
			end = alignEnd(source, start, snapToDelimiter(source, start, end))
		}

		newlines += strings.Count(source[counted:start], "\n")
		counted = start

		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      source[start:end],
			Context:   context,
			Start:     start,
			End:       end,
			StartLine: newlines + 1,
		})

		next := start + progress
		if next > end {
			next = end
		}
		for next < len(source) && !utf8.RuneStart(source[next]) {
			next++
		}
		start = next
	}
	return chunks
}

// Split chunks source with the default snippet settings and the given window
// size and overlap.
func Split(source string, maxSize, overlap int) ([]Chunk, error) {
	cfg := DefaultConfig()
	cfg.MaxSize = maxSize
	cfg.Overlap = overlap
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return c.Split(source), nil
}

// progress is the advance between chunk starts: at least a third of MaxSize.
func (c *Chunker) progress() int {
	p := c.cfg.MaxSize - c.cfg.Overlap
	if third := c.cfg.MaxSize / 3; third > p {
		p = third
	}
	if p < 1 {
		p = 1
	}
	return p
}

// alignEnd moves end off a UTF-8 continuation byte, backward when that keeps
// the chunk non-empty and forward otherwise.
func alignEnd(source string, start, end int) int {
	e := end
	for e > start && !utf8.RuneStart(source[e]) {
		e--
	}
	if e > start {
		return e
	}
	for end < len(source) && !utf8.RuneStart(source[end]) {
		end++
	}
	return end
}

// snapToDelimiter moves end back to just past the nearest delimiter in
// source[start:end] that begins after start. The longest delimiter wins when
// several begin at the same offset.
func snapToDelimiter(source string, start, end int) int {
	best, bestLen := -1, 0
	window := source[start:end]
	for _, delim := range delimiters {
		idx := strings.LastIndex(window, delim)
		if idx <= 0 {
			continue
		}
		if idx > best || (idx == best && len(delim) > bestLen) {
			best, bestLen = idx, len(delim)
		}
	}
	if best < 0 {
		return end
	}
	return start + best + bestLen
}

// ConfigContext collects the configuration declarations of source into the
// banner-prefixed context shared by every chunk. It returns "" when there are
// none.
func (c *Chunker) ConfigContext(source string) string {
	var snippets []string
	for _, loc := range c.configDef.FindAllStringIndex(source, -1) {
		end := loc[1] + c.cfg.SnippetSize
		if end > len(source) {
			end = len(source)
		}
		for end < len(source) && !utf8.RuneStart(source[end]) {
			end++
		}
		snippets = append(snippets, source[loc[0]:end])
	}
	if len(snippets) == 0 {
		return ""
	}
	return ContextBanner + strings.Join(snippets, "\n\n")
}
