package llm

import (
	"context"
	"sync"
)

// StubClient returns scripted completions for tests and offline runs.
// Responses are consumed in order; the last one repeats. A non-nil Err
// takes precedence over any scripted response.
type StubClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     []StubCall
}

// StubCall records one Complete invocation.
type StubCall struct {
	System string
	User   string
}

// NewStubClient builds a stub that replays the given responses.
func NewStubClient(responses ...string) *StubClient {
	return &StubClient{Responses: responses}
}

func (s *StubClient) Complete(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, StubCall{System: system, User: user})
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	next := s.Responses[0]
	if len(s.Responses) > 1 {
		s.Responses = s.Responses[1:]
	}
	return next, nil
}

var _ Client = (*StubClient)(nil)
