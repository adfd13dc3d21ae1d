package cmdexec

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Result is one canned response for ScriptRunner.
type Result struct {
	Stdout string
	Err    error
	// Delay simulates a slow external process before the result is
	// delivered; the call still aborts promptly on cancellation.
	Delay time.Duration
}

// ScriptRunner is a scripted Runner for tests. Responses are keyed by the
// full command line ("name arg1 arg2 ..."); unmatched commands fail.
type ScriptRunner struct {
	mu      sync.Mutex
	results map[string]Result
	streams map[string][]string
	calls   []string

	// HoldStreams keeps Start streams open after their scripted lines are
	// delivered, until the context is cancelled. This mimics log streams.
	HoldStreams bool
}

// NewScriptRunner returns an empty scripted runner.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{
		results: make(map[string]Result),
		streams: make(map[string][]string),
	}
}

func key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// Stub registers a canned result for a command line.
func (s *ScriptRunner) Stub(cmdline string, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[cmdline] = res
}

// StubStream registers scripted stdout lines for a Start command.
func (s *ScriptRunner) StubStream(cmdline string, lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[cmdline] = lines
}

// Calls returns every command line executed so far, in order.
func (s *ScriptRunner) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Run implements Runner.
func (s *ScriptRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	k := key(name, args)
	s.mu.Lock()
	s.calls = append(s.calls, k)
	res, ok := s.results[k]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("scriptrunner: no stub for %q", k)
	}
	if res.Delay > 0 {
		select {
		case <-time.After(res.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Stdout, res.Err
}

// Start implements Runner.
func (s *ScriptRunner) Start(ctx context.Context, name string, args ...string) (*Stream, error) {
	k := key(name, args)
	s.mu.Lock()
	s.calls = append(s.calls, k)
	scripted, ok := s.streams[k]
	hold := s.HoldStreams
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("scriptrunner: no stream stub for %q", k)
	}

	lines := make(chan string, len(scripted))
	done := make(chan struct{})
	go func() {
		defer close(lines)
		defer close(done)
		for _, line := range scripted {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if hold {
			<-ctx.Done()
		}
	}()

	return &Stream{
		lines: lines,
		wait: func() error {
			<-done
			return ctx.Err()
		},
	}, nil
}
