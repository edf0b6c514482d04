package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSignatures returns the built-in endpoint signatures. Each entry is a
// regular expression matched case-insensitively anywhere in the path.
func DefaultSignatures() []string {
	return []string{
		`/api/`,
		`/v\d+/`,
		`/graphql`,
		`/rest/`,
		`/auth/`,
		`/oauth2?/`,
		`/rpc/`,
		`/webhook`,
		`/data`,
		`/service`,
		`/events?/`,
		`/users?/`,
		`/\w+/\{\w+\}`,
		`/ml[-/]`,
		`/sync`,
		`/reports?/`,
		`/tasks/`,
		`/export/`,
		`/version-info/`,
		`/features/`,
		`/preferences`,
		`/profile$`,
		`/activity/`,
		`/mfa/`,
		`/challenge$`,
		`/predict$`,
		`/token$`,
		`/refresh$`,
		`/revoke$`,
		`/test$`,
	}
}

// ExtendedSignatures covers what the defaults miss: WebSocket and streaming
// paths, bare single-segment endpoints and double-brace template variables.
func ExtendedSignatures() []string {
	return []string{
		`/ws$`,
		`/ws/`,
		`/event-stream`,
		`/socket`,
		`/stream`,
		`^/login$`,
		`^/logout$`,
		`^/register$`,
		`^/oauth$`,
		`^/verify$`,
		`^/upload$`,
		`^/search$`,
		`^/download$`,
		`/\{\{\w+\}\}`,
	}
}

// AssetExclusions rejects static asset paths before any signature is tried.
func AssetExclusions() []string {
	return []string{
		`\.(js|css|html|png|jpg|jpeg|gif|svg|pdf|txt|xml)$`,
	}
}

// SignatureConfig selects and extends the signature list.
type SignatureConfig struct {
	Extended bool     `json:"extended" yaml:"extended"`
	Extra    []string `json:"extra,omitempty" yaml:"extra,omitempty"`
	Exclude  []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// SignatureSet is a compiled, ordered allow-list with an optional deny-list.
// It is immutable and safe for concurrent use.
type SignatureSet struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Compile builds a SignatureSet from include and exclude expressions.
func Compile(include, exclude []string) (*SignatureSet, error) {
	s := &SignatureSet{}
	for _, expr := range include {
		re, err := compileSignature(expr)
		if err != nil {
			return nil, err
		}
		s.include = append(s.include, re)
	}
	for _, expr := range exclude {
		re, err := compileSignature(expr)
		if err != nil {
			return nil, err
		}
		s.exclude = append(s.exclude, re)
	}
	return s, nil
}

// Build compiles the signature set described by cfg. The extended list also
// enables the asset exclusions.
func Build(cfg SignatureConfig) (*SignatureSet, error) {
	include := DefaultSignatures()
	var exclude []string
	if cfg.Extended {
		include = append(include, ExtendedSignatures()...)
		exclude = append(exclude, AssetExclusions()...)
	}
	include = append(include, cfg.Extra...)
	exclude = append(exclude, cfg.Exclude...)
	return Compile(include, exclude)
}

// Default returns the built-in signature set.
func Default() *SignatureSet {
	s, err := Compile(DefaultSignatures(), nil)
	if err != nil {
		panic(err)
	}
	return s
}

func compileSignature(expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty signature")
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", expr, err)
	}
	return re, nil
}

// IsCandidate reports whether path matches any signature and no exclusion.
func (s *SignatureSet) IsCandidate(path string) bool {
	p := strings.Trim(path, quoteChars)
	if p == "" {
		return false
	}
	for _, re := range s.exclude {
		if re.MatchString(p) {
			return false
		}
	}
	for _, re := range s.include {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// Len returns the number of include signatures.
func (s *SignatureSet) Len() int {
	return len(s.include)
}
