// Package source reads the file under analysis and prepares its text for the
// detectors.
package source

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/logger"
)

// Encodings reported in Source.Encoding.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// DefaultBeautifyThreshold is the line count below which a file is treated
// as minified.
const DefaultBeautifyThreshold = 10

// Config configures the loader.
type Config struct {
	Beautify          bool `json:"beautify" yaml:"beautify"`
	BeautifyThreshold int  `json:"beautify_threshold" yaml:"beautify_threshold"`
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() Config {
	return Config{
		Beautify:          true,
		BeautifyThreshold: DefaultBeautifyThreshold,
	}
}

// Source is a loaded file.
type Source struct {
	Path       string
	Text       string
	Encoding   string
	Beautified bool
	Scripts    int // inline scripts extracted from an HTML page
}

// Loader reads sources from disk.
type Loader struct {
	cfg Config
	log *logger.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg Config, log *logger.Logger) *Loader {
	if cfg.BeautifyThreshold <= 0 {
		cfg.BeautifyThreshold = DefaultBeautifyThreshold
	}
	return &Loader{
		cfg: cfg,
		log: logger.OrNop(log).WithComponent("source"),
	}
}

// Load reads path. HTML pages are reduced to their inline scripts. Text with
// fewer lines than the threshold is beautified; a beautifier failure keeps
// the original text.
func (l *Loader) Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewSourceError(path, "failed to read source", err)
	}

	text, encoding := Decode(data)
	src := &Source{Path: path, Text: text, Encoding: encoding}
	if encoding != EncodingUTF8 {
		l.log.Event(logger.WarnLevel).Str("path", path).Msg("Source is not valid UTF-8, decoded as ISO-8859-1")
	}

	if IsHTML(path) {
		scripts, n, err := ExtractScripts(text)
		if err != nil {
			return nil, apperrors.NewSourceError(path, "failed to parse HTML", err)
		}
		src.Text = scripts
		src.Scripts = n
		l.log.Event(logger.DebugLevel).Int("scripts", n).Msg("Extracted inline scripts")
	}

	if l.cfg.Beautify && src.Text != "" && LineCount(src.Text) < l.cfg.BeautifyThreshold {
		pretty, err := Beautify(src.Text)
		if err != nil {
			l.log.Event(logger.WarnLevel).Err(err).Str("path", path).Msg("Failed to beautify source")
		} else {
			src.Text = pretty
			src.Beautified = true
		}
	}

	return src, nil
}

// Decode returns data as text: UTF-8 when valid, otherwise ISO-8859-1,
// which maps every byte.
func Decode(data []byte) (string, string) {
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�"), EncodingLatin1
	}
	return string(decoded), EncodingLatin1
}

// LineCount returns the number of lines in text, counting a trailing
// partial line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// IsHTML reports whether path names an HTML page.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}
