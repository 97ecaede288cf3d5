package launch

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
)

// Process is a started child process.
type Process interface {
	PID() int
	// Wait blocks until the process exits. A non-zero exit is reported
	// through the code, not the error.
	Wait() (int, error)
}

// Runner starts external commands.
type Runner interface {
	// Run executes name to completion and reports a non-zero exit as an error.
	Run(ctx context.Context, name string, args ...string) error
	// Start launches name with the terminal attached and returns immediately.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// ExecRunner runs commands with os/exec, wiring them to the given streams.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner attached to the process's own terminal.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) command(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return r.command(ctx, name, args).Run()
}

// Start implements Runner.
func (r *ExecRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := r.command(ctx, name, args)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
