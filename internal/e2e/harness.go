// Package e2e runs the locsync CLI end to end against a fake remote store.
// It provides a harness for executing commands in an isolated project
// directory with captured output.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/klauern/locsync/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness runs locsync commands against an isolated project directory and a
// fake remote store.
type Harness struct {
	t          *testing.T
	projectDir string

	// Remote is the fake store every command talks to.
	Remote *FakeRemote
}

// NewHarness creates a harness with a fresh project directory and a running
// fake remote. The remote URL is injected through LOCSYNC_REMOTE_URL so no
// config file needs to mention it.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:          t,
		projectDir: t.TempDir(),
		Remote:     NewFakeRemote(t),
	}
	t.Setenv("LOCSYNC_REMOTE_URL", h.Remote.URL())
	return h
}

// ProjectDir returns the isolated project directory.
func (h *Harness) ProjectDir() string {
	return h.projectDir
}

// Run executes a CLI command with the given arguments and captures stdout.
// The project directory and --no-color are injected so output is stable.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run("", args)
}

// RunWithStdin executes a CLI command feeding stdin input, for commands that
// prompt (the plain-text conflict resolver reads stdin when stdout is not a
// terminal).
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()
	return h.run(stdin, args)
}

func (h *Harness) run(stdin string, args []string) *Result {
	h.t.Helper()

	argv := append([]string{"locsync", "--no-color", "--project", h.projectDir}, args...)

	oldStdin := os.Stdin
	if stdin != "" {
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			h.t.Fatalf("failed to create stdin pipe: %v", err)
		}
		go func() {
			defer stdinW.Close()
			_, _ = stdinW.WriteString(stdin)
		}()
		os.Stdin = stdinR
	}

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read concurrently so output larger than the pipe buffer cannot
	// deadlock the command.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), argv)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout
	os.Stdin = oldStdin

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
