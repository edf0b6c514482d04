package fusion

import (
	"github.com/PentesterFlow/jalapi/internal/endpoint"
	"github.com/PentesterFlow/jalapi/internal/logger"
)

// Summary counts the fused endpoint set.
type Summary struct {
	Total             int `json:"total_endpoints"`
	RegexFindings     int `json:"regex_findings"`
	LLMFindings       int `json:"llm_findings"`
	CombinedFindings  int `json:"combined_findings"`
	EndpointsWithAuth int `json:"endpoints_with_auth"`
}

// Summarize computes the summary of endpoints. A combined endpoint counts
// once as combined and once for each of regex and llm. Detector names other
// than regex and llm are logged and not counted.
func Summarize(endpoints []endpoint.Endpoint, log *logger.Logger) Summary {
	log = logger.OrNop(log)

	s := Summary{Total: len(endpoints)}
	for _, e := range endpoints {
		switch {
		case e.IsCombined():
			s.CombinedFindings++
			s.RegexFindings++
			s.LLMFindings++
		case e.Detector == endpoint.DetectorRegex:
			s.RegexFindings++
		case e.Detector == endpoint.DetectorLLM:
			s.LLMFindings++
		default:
			log.Event(logger.DebugLevel).
				Str("detector", e.Detector).
				Str("path", e.Path).
				Msg("Endpoint from unrecognized detector not counted")
		}

		if e.Auth.Required {
			s.EndpointsWithAuth++
		}
	}
	return s
}

// Map returns the summary keyed by its serialized field names.
func (s Summary) Map() map[string]interface{} {
	return map[string]interface{}{
		"total_endpoints":     s.Total,
		"regex_findings":      s.RegexFindings,
		"llm_findings":        s.LLMFindings,
		"combined_findings":   s.CombinedFindings,
		"endpoints_with_auth": s.EndpointsWithAuth,
	}
}
