// Package command runs external binaries (terraform, juju) for the adapters.
//
// Production code uses [ExecRunner]; tests use [MockRunner], which returns
// canned results keyed by the full command line and records every call.
package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Call records a command invocation.
type Call struct {
	Dir     string
	Command string
	Args    []string
}

// String joins the command and its arguments with spaces.
func (c Call) String() string {
	return strings.Join(append([]string{c.Command}, c.Args...), " ")
}

// Runner executes commands.
//
// A non-zero exit is reported through [Result.ExitCode], not as an error;
// the error is reserved for failures to start or wait for the process.
type Runner interface {
	Run(ctx context.Context, dir, command string, args ...string) (Result, error)
}

// ExecRunner runs real processes with os/exec.
type ExecRunner struct {
	// Env is appended to the current environment of every process.
	Env []string
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(env ...string) *ExecRunner {
	return &ExecRunner{Env: env}
}

// Run executes command in dir and returns its result.
func (r *ExecRunner) Run(ctx context.Context, dir, command string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// Ensure ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
