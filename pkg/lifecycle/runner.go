package lifecycle

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
)

// Script is one lifecycle event ready to run.
type Script struct {
	Package graph.Identity
	Event   string
	Command string
	Dir     string
	Env     []string // added to the process environment
}

// Runner executes a script to completion.
type Runner interface {
	Run(ctx context.Context, s Script) error
}

// ShellRunner runs scripts with "<Shell> -c <command>".
type ShellRunner struct {
	Shell  string    // defaults to "sh"
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

// Run implements [Runner]. A non-zero exit is LIFECYCLE_SCRIPT_FAILURE.
func (r *ShellRunner) Run(ctx context.Context, s Script) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", s.Command)
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeScriptFailed, err,
			"%s %s: %s", s.Package.NameVersion(), s.Event, s.Command)
	}
	return nil
}

var _ Runner = (*ShellRunner)(nil)
