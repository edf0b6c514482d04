// Package normalize canonicalizes raw path strings pulled out of JavaScript
// and decides whether a path looks like an API endpoint.
package normalize

import (
	"regexp"
	"strings"
)

const quoteChars = "`'\""

var (
	templateVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	slashRun    = regexp.MustCompile(`/{2,}`)
)

// Path converts ${expr} interpolations to {expr}, strips surrounding quote
// characters and collapses repeated slashes. Path is total and idempotent.
func Path(raw string) string {
	p := raw
	// "$${a}" becomes "${a}" after one pass.
	for templateVar.MatchString(p) {
		p = templateVar.ReplaceAllString(p, "{${1}}")
	}
	p = strings.Trim(p, quoteChars)
	return slashRun.ReplaceAllString(p, "/")
}
