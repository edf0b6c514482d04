package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern expressions use shorthand tokens for the quote classes, which are
// awkward to write inside Go raw strings:
//
//	<q>   any JavaScript string delimiter
//	<nq>  any character that is not a string delimiter
//	<bt>  a backtick
var tokens = strings.NewReplacer(
	"<q>", "['\"`]",
	"<nq>", "[^'\"`]",
	"<bt>", "`",
)

// Rule is a named call-site pattern.
type Rule struct {
	Name string
	Expr *regexp.Regexp
}

func mustRule(name, expr string) Rule {
	return Rule{Name: name, Expr: regexp.MustCompile("(?i)" + tokens.Replace(expr))}
}

// DefaultRules returns the call-site patterns in match order. Earlier rules
// claim a path first; later rules only add paths not yet seen.
func DefaultRules() []Rule {
	return []Rule{
		mustRule("axios-method", `axios\.(?:get|post|put|delete|patch)\s*\(\s*<q>(<nq>+)<q>`),
		mustRule("axios-config", `axios\s*\(\s*\{\s*url\s*:\s*<q>(<nq>+)<q>`),
		mustRule("fetch", `fetch\s*\(\s*<q>(<nq>+)<q>`),
		mustRule("fetch-template", `fetch\s*\(\s*<bt>([^<bt>]+)<bt>`),
		mustRule("jquery-ajax", `\$\.ajax\s*\(\s*\{\s*url\s*:\s*<q>(<nq>+)<q>`),
		mustRule("jquery-method", `\$\.(get|post|put|delete|patch)\s*\(\s*<q>(<nq>+)<q>`),
		mustRule("url-key", `url\s*:\s*<q>(<nq>+)<q>`),
		mustRule("endpoint-key", `endpoint\s*:\s*<q>(<nq>+)<q>`),
		mustRule("path-key", `path\s*:\s*<q>(<nq>+)<q>`),
		mustRule("api-literal", `<q>(/api/<nq>+)<q>`),
		mustRule("version-literal", `<q>(/v\d+/<nq>+)<q>`),
	}
}

// AuthRule maps a context pattern to the authentication it implies.
type AuthRule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Type     string `json:"type" yaml:"type"`
	Location string `json:"location" yaml:"location"`
}

// DefaultAuthRules returns the authentication rules in priority order.
func DefaultAuthRules() []AuthRule {
	return []AuthRule{
		{Pattern: `Authorization<q>?\s*:\s*<q>?Bearer`, Type: "Bearer", Location: "header"},
		{Pattern: `X-API-Key`, Type: "apiKey", Location: "header"},
		{Pattern: `api[_-]?key`, Type: "apiKey", Location: "query"},
		{Pattern: `token\s*:`, Type: "token", Location: "body"},
	}
}

// genericAuth flags required auth with no type or location.
var genericAuth = regexp.MustCompile(`(?i)auth|token|jwt|apikey`)

type compiledAuthRule struct {
	re       *regexp.Regexp
	typ      string
	location string
}

func compileAuthRules(rules []AuthRule) ([]compiledAuthRule, error) {
	compiled := make([]compiledAuthRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("auth rule %q has an empty pattern", r.Type)
		}
		re, err := regexp.Compile("(?i)" + tokens.Replace(r.Pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid auth rule %q: %w", r.Pattern, err)
		}
		compiled = append(compiled, compiledAuthRule{re: re, typ: r.Type, location: r.Location})
	}
	return compiled, nil
}
