package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// scriptTypes are the type attributes whose bodies are JavaScript.
var scriptTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"application/javascript": true,
	"module":                 true,
	"text/babel":             true,
	"text/jsx":               true,
}

// ExtractScripts returns the bodies of the inline JavaScript blocks of an
// HTML page joined by newlines, and how many there were. External scripts
// (src attribute) have no body and are skipped.
func ExtractScripts(html string) (string, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", 0, err
	}

	var bodies []string
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		typ, _ := s.Attr("type")
		if !scriptTypes[strings.ToLower(strings.TrimSpace(typ))] {
			return
		}
		if body := strings.TrimSpace(s.Text()); body != "" {
			bodies = append(bodies, body)
		}
	})

	return strings.Join(bodies, "\n"), len(bodies), nil
}
