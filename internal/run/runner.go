package run

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner defines the interface for executing external tools. Every
// owlkit wrapper (docker, cwltool, sbpack, sb) goes through it so tests
// can substitute a recording fake.
type Runner interface {
	// Run executes a command with inherited stdout/stderr.
	Run(ctx context.Context, dir, name string, args ...string) error
	// RunInput executes a command feeding input on stdin. Output is
	// captured and folded into the error on failure, so secrets piped
	// through stdin never echo on success.
	RunInput(ctx context.Context, dir, input, name string, args ...string) error
	// Output executes a command and returns its stdout. Extra env
	// entries are appended to the inherited environment. Stderr is
	// inherited.
	Output(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
	// Combined executes a command and returns interleaved
	// stdout+stderr.
	Combined(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// LookPath reports where name resolves on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes a command with inherited stdout/stderr.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RunInput executes a command with input on stdin and only surfaces
// output if it fails.
func (ExecRunner) RunInput(ctx context.Context, dir, input, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Output executes a command and returns its stdout. Stderr is inherited.
func (ExecRunner) Output(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.Stderr = os.Stderr
	return cmd.Output()
}

// Combined executes a command and returns interleaved stdout+stderr.
func (ExecRunner) Combined(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// LookPath reports where name resolves on PATH.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
