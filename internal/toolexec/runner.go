// Package toolexec runs external programs in the directory of the file they process
// and checks that the files they are expected to write were written.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner starts a process and waits for it. err is non-nil only if the process could
// not be started or waited for; a nonzero exit is reported through exitCode.
type Runner interface {
	Exec(ctx context.Context, dir, command string, args []string) (output string, exitCode int, err error)
}

// OSRunner runs programs with os/exec, merging stdout and stderr.
type OSRunner struct {
	// Env, when non-nil, replaces the process environment of started programs.
	Env []string
}

// Exec implements Runner.
func (r OSRunner) Exec(ctx context.Context, dir, command string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return out.String(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.String(), exitErr.ExitCode(), nil
	}
	return out.String(), -1, err
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, dir, command string, args []string) (string, int, error)

// Exec implements Runner.
func (f RunnerFunc) Exec(ctx context.Context, dir, command string, args []string) (string, int, error) {
	return f(ctx, dir, command, args)
}
