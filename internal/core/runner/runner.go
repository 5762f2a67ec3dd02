// Package runner executes external tools synchronously.
//
// A non-zero exit status is reported in Result, not as an error; callers map
// it to their own failure taxonomy. Run only returns an error when the command
// could not be started or was cancelled.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the inherited environment
}

// String renders the command line for logs and error context.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Output   []byte // combined stdout and stderr
}

// Success reports a zero exit status.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, cmd Command) (Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}

// ExecRunner runs commands with os/exec. Output is captured and, when Stream
// is set, also copied to it as it is produced.
type ExecRunner struct {
	Stream io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stream != nil {
		out = io.MultiWriter(&buf, r.Stream)
	}
	c.Stdout = out
	c.Stderr = out

	err := c.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1, Output: buf.Bytes()}, fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: buf.Bytes()}, nil
	}
	if err != nil {
		return Result{ExitCode: -1, Output: buf.Bytes()}, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}
	return Result{ExitCode: 0, Output: buf.Bytes()}, nil
}
