package command

import (
	"context"
	"os/exec"
)

// Executor creates the process for a validated command line. Tests swap it
// to launch a fake native host instead of the configured binary.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

func (f ExecutorFunc) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return f(ctx, name, args...)
}

// RealExecutor launches processes with os/exec.
type RealExecutor struct{}

func (RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
