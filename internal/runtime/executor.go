// Package runtime drives the model runtime through its command line
package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"

	"extract-gateway/internal/shared"
)

// Output is what a finished runtime subprocess left behind. ExitCode is -1
// when the process never ran to completion.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs one runtime subcommand. It only returns an error when the
// process could not be started or was killed by ctx; a non-zero exit is
// reported through Output.ExitCode.
type Executor interface {
	Execute(ctx context.Context, stdin io.Reader, args ...string) (Output, error)
}

// CLI executes the runtime binary directly with an argument vector. Nothing
// is ever passed through a shell; payloads travel on stdin.
type CLI struct {
	Binary string
	// Args are prepended to every invocation.
	Args []string
	// Env entries are appended to the inherited environment.
	Env []string
}

func (c *CLI) Execute(ctx context.Context, stdin io.Reader, args ...string) (Output, error) {
	argv := append(slices.Clone(c.Args), args...)
	cmd := exec.CommandContext(ctx, c.Binary, argv...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		return out, fmt.Errorf("%w: %w", shared.ErrRuntimeTimeout, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	out.ExitCode = -1
	return out, fmt.Errorf("%w: %w", shared.ErrRuntimeLaunch, err)
}
