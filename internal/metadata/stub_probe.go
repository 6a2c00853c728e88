package metadata

import (
	"context"
	"os"
)

// StubProbe returns canned results keyed by path, without spawning a
// process. Tests register the paths they care about; any other path
// returns an empty Result unless the file genuinely doesn't exist, which
// still surfaces as an error (the one failure mode the extractor must not swallow).
type StubProbe struct {
	Results map[string]*Result
}

// NewStubProbe builds an empty stub; use WithResult to seed it.
func NewStubProbe() *StubProbe {
	return &StubProbe{Results: make(map[string]*Result)}
}

// WithResult registers the canned Result returned for path.
func (s *StubProbe) WithResult(path string, result *Result) *StubProbe {
	s.Results[path] = result
	return s
}

func (s *StubProbe) Extract(ctx context.Context, path string, kind MediaKind) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, unreadableFileError(path, err)
	}
	if r, ok := s.Results[path]; ok {
		return r, nil
	}
	return &Result{Raw: map[string]interface{}{}}, nil
}
