package cmdexec

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external tools. The concrete implementation shells out;
// tests substitute ScriptRunner.
type Runner interface {
	// Run executes a command to completion and returns its stdout.
	// A non-zero exit wraps captured stderr into the returned error.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// Start launches a long-lived command and returns a line stream over
	// its stdout. The process is killed when ctx is cancelled.
	Start(ctx context.Context, name string, args ...string) (*Stream, error)
}

// Stream delivers the stdout of a running command line by line.
type Stream struct {
	lines <-chan string
	wait  func() error
}

// Lines returns the channel of stdout lines. It is closed when the process
// exits or the context is cancelled.
func (s *Stream) Lines() <-chan string { return s.lines }

// Wait blocks until the process has exited and returns its final error.
func (s *Stream) Wait() error { return s.wait() }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return stdout.String(), nil
}

// Start implements Runner.
func (ExecRunner) Start(ctx context.Context, name string, args ...string) (*Stream, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stdout pipe: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Stream{
		lines: lines,
		wait: func() error {
			err := cmd.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		},
	}, nil
}
