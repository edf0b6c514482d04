package pattern

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// seenSet tracks normalized paths already emitted during one Detect call.
// A negative bloom test proves a path is new without touching the map; only
// bloom positives are confirmed against the exact map, so a false positive
// never drops a real endpoint.
type seenSet struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newSeenSet(estimatedItems int) *seenSet {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}
	return &seenSet{
		filter: bloom.NewWithEstimates(uint(estimatedItems), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// add records path and reports whether it was new.
func (s *seenSet) add(path string) bool {
	if !s.filter.TestString(path) {
		s.filter.AddString(path)
		s.exact[path] = struct{}{}
		return true
	}
	if _, ok := s.exact[path]; ok {
		return false
	}
	// False positive: the filter already has the bits set.
	s.exact[path] = struct{}{}
	return true
}

func (s *seenSet) len() int {
	return len(s.exact)
}
