package jsonsync

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
)

// Command is an external program invocation. Args are passed as-is, no
// shell is involved.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs a Command to completion
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec. A non-zero exit becomes a
// SubprocessError carrying the exit code; a command that cannot start gets
// exit code -1.
type ExecRunner struct {
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

func (r ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = r.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = r.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	err := c.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return errors.NewSubprocessError(cmd.String(), exitErr.ExitCode(), err)
	}
	return errors.NewSubprocessError(cmd.String(), -1, err)
}
