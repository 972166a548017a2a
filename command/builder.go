// Package command builds validated invocations of the native host process.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// SafeBuilder validates a host command line before handing it to an Executor.
type SafeBuilder struct {
	validators map[string]func(string) error
	executor   Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		validators: map[string]func(string) error{
			"hostPath": validateHostPath,
			"hostArg":  validateHostArg,
			"origin":   validateOrigin,
		},
		executor: exec,
	}
}

// validateHostPath accepts a bare executable name or an absolute path.
func validateHostPath(path string) error {
	if path == "" {
		return fmt.Errorf("host path cannot be empty")
	}
	if strings.ContainsAny(path, ";|&$`\n") {
		return fmt.Errorf("host path contains invalid characters")
	}
	if strings.ContainsRune(path, filepath.Separator) && !filepath.IsAbs(path) {
		return fmt.Errorf("host path must be absolute or a bare name: %s", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("host path cannot contain '..'")
	}
	return nil
}

func validateHostArg(arg string) error {
	if strings.ContainsAny(arg, "`\n\x00") {
		return fmt.Errorf("invalid host argument: %q", arg)
	}
	return nil
}

var originPattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[A-Za-z0-9._-]+/?$`)

// validateOrigin checks the caller origin passed as the first host argument,
// e.g. chrome-extension://<id>/.
func validateOrigin(origin string) error {
	if !originPattern.MatchString(origin) {
		return fmt.Errorf("invalid origin: %s", origin)
	}
	return nil
}

// Command is a validated host command line.
type Command struct {
	name     string
	args     []string
	executor Executor
}

// Build validates name and args and returns a runnable Command.
func (sb *SafeBuilder) Build(name string, args ...string) (*Command, error) {
	if err := validateHostPath(name); err != nil {
		return nil, err
	}
	for _, arg := range args {
		if err := validateHostArg(arg); err != nil {
			return nil, err
		}
	}

	return &Command{
		name:     name,
		args:     args,
		executor: sb.executor,
	}, nil
}

// Validate runs the named validator against value.
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Name is the executable the command launches.
func (c *Command) Name() string { return c.name }

// Exec creates the exec.Cmd bound to ctx; cancelling ctx kills the host.
func (c *Command) Exec(ctx context.Context) *exec.Cmd {
	return c.executor.CommandContext(ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}
