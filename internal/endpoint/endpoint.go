// Package endpoint defines the candidate and canonical endpoint values shared
// by the detectors and the fuser.
package endpoint

import (
	"sort"
	"strings"
)

// Method sentinel and vocabulary.
const (
	MethodUnknown = "UNKNOWN"
)

var methods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Detector names.
const (
	DetectorRegex = "regex"
	DetectorLLM   = "llm"

	detectorSep = "+"
)

// NormalizeMethod upper-cases m and maps anything outside the HTTP verb
// vocabulary to MethodUnknown.
func NormalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if methods[m] {
		return m
	}
	return MethodUnknown
}

// AuthInfo describes the authentication observed around an endpoint
// reference. The zero value means no authentication signal.
type AuthInfo struct {
	Required bool   `json:"required"`
	Type     string `json:"type,omitempty"`
	Location string `json:"location,omitempty"`
}

// Endpoint is a single discovered API reference. Endpoints are values: the
// fuser builds a new one on every merge instead of editing the survivor.
type Endpoint struct {
	Path       string   `json:"path"`
	Method     string   `json:"method"`
	Auth       AuthInfo `json:"auth"`
	Confidence float64  `json:"confidence"`
	Detector   string   `json:"detector"`
	Context    string   `json:"context,omitempty"`
	Line       int      `json:"line_number,omitempty"` // 0 when unknown
}

// Key is the deduplication identity of an endpoint.
type Key struct {
	Path   string
	Method string
}

// Key returns the (path, method) identity of e.
func (e Endpoint) Key() Key {
	return Key{Path: e.Path, Method: e.Method}
}

// Detectors returns the component detector names of e.
func (e Endpoint) Detectors() []string {
	return ParseDetectors(e.Detector)
}

// IsCombined reports whether more than one detector found e.
func (e Endpoint) IsCombined() bool {
	return strings.Contains(e.Detector, detectorSep)
}

// ParseDetectors splits a detector string into its unique, sorted components.
func ParseDetectors(s string) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, name := range strings.Split(s, detectorSep) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JoinDetectors returns the canonical detector string for names: unique,
// lexicographically sorted, "+"-joined.
func JoinDetectors(names ...string) string {
	return strings.Join(ParseDetectors(strings.Join(names, detectorSep)), detectorSep)
}

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
