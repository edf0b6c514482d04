package semantic

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/PentesterFlow/jalapi/internal/endpoint"
	"github.com/PentesterFlow/jalapi/internal/normalize"
)

// DefaultConfidence is assigned to records that carry no usable confidence.
const DefaultConfidence = 0.8

// evidenceBoost is added when a record has both evidence and usage context.
const evidenceBoost = 0.1

// Record is one endpoint entry of a model reply after validation. Fields the
// model omitted or sent with the wrong type are left at their zero value.
type Record struct {
	Path         string
	Method       string
	Auth         endpoint.AuthInfo
	Confidence   *float64
	Evidence     string
	UsageContext string
	Line         int
}

// ParseResponse extracts the endpoint records from a model reply. The reply
// may wrap its JSON in prose or code fences. It returns the usable records
// and the number of records skipped for lacking a path. An error means the
// reply has no object with an "endpoints" list.
func ParseResponse(text string) ([]Record, int, error) {
	obj, err := extractObject(text)
	if err != nil {
		return nil, 0, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(obj["endpoints"], &raws); err != nil {
		return nil, 0, errNotList
	}

	records := make([]Record, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		rec, ok := decodeRecord(raw)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errNoObject parseError = "reply contains no JSON object with an endpoints key"
	errNotList  parseError = "endpoints is not a list"
)

// extractObject returns the first JSON object in text that has an
// "endpoints" key.
func extractObject(text string) (map[string]json.RawMessage, error) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		var obj map[string]json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if dec.Decode(&obj) == nil {
			if _, ok := obj["endpoints"]; ok {
				return obj, nil
			}
		}

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, errNoObject
}

// decodeRecord validates one raw entry. It reports false when the entry is
// not an object or has no usable path.
func decodeRecord(raw json.RawMessage) (Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Record{}, false
	}

	path := strings.TrimSpace(stringField(fields["path"]))
	if path == "" {
		return Record{}, false
	}
	path = normalize.Path(path)
	if path == "" {
		return Record{}, false
	}

	rec := Record{
		Path:         path,
		Method:       stringField(fields["method"]),
		Evidence:     stringField(fields["evidence"]),
		UsageContext: stringField(fields["usage_context"]),
		Auth:         authField(fields["auth"]),
	}
	if c, ok := numberField(fields["confidence"]); ok {
		rec.Confidence = &c
	}
	if line, ok := numberField(fields["line_number"]); ok {
		rec.Line = int(line)
	}
	return rec, true
}

// Endpoint converts r into a candidate for a chunk starting at startLine.
func (r Record) Endpoint(startLine int) endpoint.Endpoint {
	confidence := DefaultConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	if r.Evidence != "" && r.UsageContext != "" {
		confidence += evidenceBoost
		if confidence > 1 {
			confidence = 1
		}
	}

	line := startLine
	if r.Line > 0 {
		line = startLine + r.Line - 1
	}

	context := r.UsageContext
	if context == "" {
		context = r.Evidence
	}

	return endpoint.Endpoint{
		Path:       r.Path,
		Method:     endpoint.NormalizeMethod(r.Method),
		Auth:       r.Auth,
		Confidence: endpoint.ClampConfidence(confidence),
		Detector:   endpoint.DetectorLLM,
		Context:    context,
		Line:       line,
	}
}

func stringField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// numberField accepts JSON numbers and numeric strings.
func numberField(raw json.RawMessage) (float64, bool) {
	if absent(raw) {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f, true
	}
	if s := stringField(raw); s != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

// absent reports a missing or null field.
func absent(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v == "" || v == "null"
}

func boolField(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	if s := stringField(raw); s != "" {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	return b
}

func authField(raw json.RawMessage) endpoint.AuthInfo {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return endpoint.AuthInfo{}
	}
	return endpoint.AuthInfo{
		Required: boolField(fields["required"]),
		Type:     stringField(fields["type"]),
		Location: stringField(fields["location"]),
	}
}
