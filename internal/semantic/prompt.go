package semantic

import (
	"fmt"
	"strings"

	"github.com/PentesterFlow/jalapi/internal/chunk"
)

// Placeholders understood by the analysis prompt.
const (
	PlaceholderCode    = "code_chunk"
	PlaceholderContext = "context"
)

// PromptConfig holds the instructions sent with every chunk.
type PromptConfig struct {
	SystemPrompt   string `json:"system_prompt" yaml:"system_prompt"`
	AnalysisPrompt string `json:"analysis_prompt" yaml:"analysis_prompt"`
}

// DefaultPrompts returns the built-in prompts used when no configuration
// file supplies them.
func DefaultPrompts() PromptConfig {
	return PromptConfig{
		SystemPrompt:   defaultSystemPrompt,
		AnalysisPrompt: defaultAnalysisPrompt,
	}
}

// Validate checks that both prompts are present.
func (p PromptConfig) Validate() error {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if strings.TrimSpace(p.AnalysisPrompt) == "" {
		return fmt.Errorf("analysis_prompt is required")
	}
	return nil
}

// Render fills the analysis prompt for c.
func (p PromptConfig) Render(c chunk.Chunk) string {
	return Render(p.AnalysisPrompt, map[string]string{
		PlaceholderCode:    c.Text,
		PlaceholderContext: c.Context,
	})
}

// Render substitutes {name} placeholders in tmpl. "{{" and "}}" produce
// literal braces and unknown placeholders are kept as written. Substituted
// values are not scanned again.
func Render(tmpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		switch {
		case c == '{' && strings.HasPrefix(tmpl[i:], "{{"):
			b.WriteByte('{')
			i += 2
		case c == '}' && strings.HasPrefix(tmpl[i:], "}}"):
			b.WriteByte('}')
			i += 2
		case c == '{':
			if end := strings.IndexByte(tmpl[i+1:], '}'); end >= 0 {
				if v, ok := vars[tmpl[i+1:i+1+end]]; ok {
					b.WriteString(v)
					i += end + 2
					continue
				}
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

const defaultSystemPrompt = `You are an application security analyst. You read JavaScript source code and list every HTTP API endpoint the code calls or declares. You answer with a single JSON object and nothing else.`

const defaultAnalysisPrompt = `Identify the HTTP API endpoints referenced in the JavaScript code below.

Look for fetch, axios, XMLHttpRequest and jQuery calls, route tables, configuration objects holding base URLs or paths, and template literals that build request URLs. Replace template expressions with {{name}} placeholders. Report the HTTP method when the code makes it clear, and any authentication the request carries (headers such as Authorization or X-API-Key, tokens in the query string or body).

{context}

Code:
{code_chunk}

Respond with JSON in exactly this shape:
{{"endpoints": [{{"path": "/api/users/{{id}}", "method": "GET", "auth": {{"required": true, "type": "Bearer", "location": "header"}}, "confidence": 0.9, "evidence": "the code that shows the call", "usage_context": "what the call is used for", "line_number": 12}}]}}

line_number is relative to the first line of the code above. Use an empty list when there are no endpoints.`
