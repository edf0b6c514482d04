// Package fusion merges the candidates of every detector into one canonical
// endpoint set and summarizes it.
package fusion

import (
	"strings"
	"sync"

	"github.com/PentesterFlow/jalapi/internal/endpoint"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/normalize"
)

// Fuser deduplicates candidates by (path, method). Add may be called from
// several goroutines; each insertion takes the lock once.
type Fuser struct {
	mu        sync.Mutex
	index     map[endpoint.Key]int
	endpoints []endpoint.Endpoint
	merges    int
	log       *logger.Logger
}

// New creates an empty Fuser.
func New(log *logger.Logger) *Fuser {
	return &Fuser{
		index: make(map[endpoint.Key]int),
		log:   logger.OrNop(log).WithComponent("fusion"),
	}
}

// Add folds one candidate into the set. Candidates with an empty path are
// ignored.
func (f *Fuser) Add(e endpoint.Endpoint) {
	e = canonical(e)
	if e.Path == "" {
		f.log.Debug("Ignoring candidate with empty path")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := e.Key()
	i, ok := f.index[key]
	if !ok {
		f.index[key] = len(f.endpoints)
		f.endpoints = append(f.endpoints, e)
		return
	}

	f.endpoints[i] = merge(f.endpoints[i], e)
	f.merges++
}

// AddAll adds every candidate in order.
func (f *Fuser) AddAll(es []endpoint.Endpoint) {
	for _, e := range es {
		f.Add(e)
	}
}

// Endpoints returns the canonical set in first-seen order.
func (f *Fuser) Endpoints() []endpoint.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]endpoint.Endpoint, len(f.endpoints))
	copy(out, f.endpoints)
	return out
}

// Len returns the number of distinct endpoints.
func (f *Fuser) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.endpoints)
}

// Merges returns how many candidates were folded into an existing endpoint.
func (f *Fuser) Merges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merges
}

// Fuse merges candidates in order and returns the canonical set.
func Fuse(candidates ...[]endpoint.Endpoint) []endpoint.Endpoint {
	f := New(nil)
	for _, list := range candidates {
		f.AddAll(list)
	}
	return f.Endpoints()
}

// canonical normalizes the identity and provenance fields of e.
func canonical(e endpoint.Endpoint) endpoint.Endpoint {
	e.Path = normalize.Path(e.Path)
	e.Method = endpoint.NormalizeMethod(e.Method)
	e.Detector = endpoint.JoinDetectors(e.Detector)
	e.Confidence = endpoint.ClampConfidence(e.Confidence)
	return e
}

// merge returns the endpoint that replaces survivor once candidate, which
// shares its key, has been seen.
//
// A candidate whose detectors are already credited is a repeat. A stronger
// repeat contributes its confidence and context and its line when it has
// one; the survivor keeps its detectors and method. A weaker or equal
// repeat leaves all of that alone. Auth required by a stronger repeat
// replaces the survivor's; a weaker repeat's auth only fills in when the
// survivor has none, so a repeat never drops a required finding.
//
// Any other candidate adds its detectors: confidence is the maximum, an
// UNKNOWN method adopts the candidate's, auth is the candidate's when it
// requires auth, contexts are joined and the survivor's line wins.
func merge(survivor, candidate endpoint.Endpoint) endpoint.Endpoint {
	if subset(candidate.Detectors(), survivor.Detectors()) {
		out := survivor
		if candidate.Confidence > survivor.Confidence {
			out.Confidence = candidate.Confidence
			out.Context = candidate.Context
			if candidate.Line != 0 {
				out.Line = candidate.Line
			}
			if candidate.Auth.Required {
				out.Auth = candidate.Auth
			}
		} else if !survivor.Auth.Required && candidate.Auth.Required {
			out.Auth = candidate.Auth
		}
		return out
	}

	out := endpoint.Endpoint{
		Path:       survivor.Path,
		Method:     survivor.Method,
		Auth:       survivor.Auth,
		Confidence: survivor.Confidence,
		Detector:   endpoint.JoinDetectors(survivor.Detector, candidate.Detector),
		Context:    strings.TrimSpace(survivor.Context + "\n" + candidate.Context),
		Line:       survivor.Line,
	}
	if candidate.Confidence > out.Confidence {
		out.Confidence = candidate.Confidence
	}
	if out.Method == endpoint.MethodUnknown && candidate.Method != endpoint.MethodUnknown {
		out.Method = candidate.Method
	}
	if candidate.Auth.Required {
		out.Auth = candidate.Auth
	}
	if out.Line == 0 {
		out.Line = candidate.Line
	}
	return out
}

// subset reports whether every name in a is in b. Both are sorted.
func subset(a, b []string) bool {
	j := 0
	for _, name := range a {
		for j < len(b) && b[j] < name {
			j++
		}
		if j == len(b) || b[j] != name {
			return false
		}
		j++
	}
	return true
}
