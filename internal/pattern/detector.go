// Package pattern finds endpoint references with a fixed library of
// call-site regular expressions.
package pattern

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PentesterFlow/jalapi/internal/endpoint"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/normalize"
)

// Confidence is assigned to every pattern finding.
const Confidence = 0.7

// DefaultContextWindow is the number of characters around a match used to
// infer method and authentication.
const DefaultContextWindow = 200

var methodKeyword = regexp.MustCompile(`(?i)(get|post|put|delete|patch)`)

// Config configures a Detector.
type Config struct {
	ContextWindow int        `json:"context_window" yaml:"context_window"`
	AuthRules     []AuthRule `json:"auth_rules,omitempty" yaml:"auth_rules,omitempty"`
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		ContextWindow: DefaultContextWindow,
		AuthRules:     DefaultAuthRules(),
	}
}

// Detector scans whole source files for endpoint references. It holds no
// per-run state and is safe for concurrent use.
type Detector struct {
	rules      []Rule
	auth       []compiledAuthRule
	signatures *normalize.SignatureSet
	window     int
	log        *logger.Logger
}

// New creates a Detector. A nil signature set selects the defaults.
func New(cfg Config, signatures *normalize.SignatureSet, log *logger.Logger) (*Detector, error) {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.AuthRules == nil {
		cfg.AuthRules = DefaultAuthRules()
	}
	auth, err := compileAuthRules(cfg.AuthRules)
	if err != nil {
		return nil, err
	}
	if signatures == nil {
		signatures = normalize.Default()
	}

	return &Detector{
		rules:      DefaultRules(),
		auth:       auth,
		signatures: signatures,
		window:     cfg.ContextWindow,
		log:        logger.OrNop(log).WithComponent("pattern"),
	}, nil
}

// Detect returns one endpoint per distinct normalized path, in rule order and
// then source order.
func (d *Detector) Detect(source string) []endpoint.Endpoint {
	var (
		found []endpoint.Endpoint
		seen  = newSeenSet(len(source) / 100)
		lines = newLineIndex(source)
	)

	for _, rule := range d.rules {
		for _, m := range rule.Expr.FindAllStringSubmatchIndex(source, -1) {
			raw, ok := pathGroup(source, m)
			if !ok {
				continue
			}

			path := normalize.Path(raw)
			if !d.signatures.IsCandidate(path) || !seen.add(path) {
				continue
			}

			// The window only feeds inference; regex findings carry no
			// usage context of their own.
			window := contextWindow(source, m[0], d.window)
			ep := endpoint.Endpoint{
				Path:       path,
				Method:     inferMethod(window),
				Auth:       d.inferAuth(window),
				Confidence: Confidence,
				Detector:   endpoint.DetectorRegex,
				Line:       lines.lineAt(m[0]),
			}
			d.log.DetectionEvent(ep.Detector, ep.Method, ep.Path, ep.Line)
			found = append(found, ep)
		}
	}

	d.log.Debugf("pattern scan found %d endpoints", seen.len())
	return found
}

// pathGroup picks the first captured group that contains a slash or "api".
func pathGroup(source string, m []int) (string, bool) {
	for g := 2; g+1 < len(m); g += 2 {
		if m[g] < 0 {
			continue
		}
		s := source[m[g]:m[g+1]]
		if strings.Contains(s, "/") || strings.Contains(strings.ToLower(s), "api") {
			return s, true
		}
	}
	return "", false
}

// contextWindow returns up to window/2 characters either side of pos, widened
// to rune boundaries.
func contextWindow(source string, pos, window int) string {
	half := window / 2
	start := pos - half
	if start < 0 {
		start = 0
	}
	end := pos + half
	if end > len(source) {
		end = len(source)
	}
	for start > 0 && !utf8.RuneStart(source[start]) {
		start--
	}
	for end < len(source) && !utf8.RuneStart(source[end]) {
		end++
	}
	return source[start:end]
}

func inferMethod(ctx string) string {
	if m := methodKeyword.FindString(ctx); m != "" {
		return strings.ToUpper(m)
	}
	return endpoint.MethodUnknown
}

func (d *Detector) inferAuth(ctx string) endpoint.AuthInfo {
	for _, r := range d.auth {
		if r.re.MatchString(ctx) {
			return endpoint.AuthInfo{Required: true, Type: r.typ, Location: r.location}
		}
	}
	if genericAuth.MatchString(ctx) {
		return endpoint.AuthInfo{Required: true}
	}
	return endpoint.AuthInfo{}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(source string) lineIndex {
	idx := lineIndex{}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// lineAt returns one plus the number of newlines before offset.
func (idx lineIndex) lineAt(offset int) int {
	return sort.SearchInts(idx, offset) + 1
}
