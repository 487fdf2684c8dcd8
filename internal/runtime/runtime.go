package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"extract-gateway/internal/metrics"
	"extract-gateway/internal/shared"

	"go.uber.org/zap"
)

type Timeouts struct {
	List time.Duration
	Pull time.Duration
	Run  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		List: shared.DefaultListTimeout,
		Pull: shared.DefaultPullTimeout,
		Run:  shared.DefaultRunTimeout,
	}
}

// InvocationResult is the outcome of a single model run. Output holds stdout
// when OK, otherwise the captured error stream.
type InvocationResult struct {
	Output   string
	OK       bool
	ExitCode int
}

// Client wraps the list, pull and run subcommands of the runtime.
// All failures are converted into bools or InvocationResults here.
type Client struct {
	exec     Executor
	log      *zap.SugaredLogger
	timeouts Timeouts
}

func NewClient(exec Executor, log *zap.SugaredLogger, timeouts Timeouts) *Client {
	return &Client{exec: exec, log: log, timeouts: timeouts}
}

func (c *Client) command(ctx context.Context, name string, timeout time.Duration, stdin io.Reader, args ...string) (Output, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := c.exec.Execute(ctx, stdin, args...)
	metrics.RuntimeCommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		reason := "unknown"
		var merr *shared.MetricsError
		if errors.As(err, &merr) {
			reason = merr.Code
		}
		metrics.RuntimeCommandErrors.WithLabelValues(name, reason).Inc()
	case out.ExitCode != 0:
		metrics.RuntimeCommandErrors.WithLabelValues(name, shared.ErrRuntimeExit.Code).Inc()
	}
	return out, err
}

// List returns the runtime's model listing, one entry per line.
func (c *Client) List(ctx context.Context) ([]string, error) {
	out, err := c.command(ctx, "list", c.timeouts.List, nil, "list")
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("%w (exit %d): %s", shared.ErrRuntimeExit, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return splitLines(out.Stdout), nil
}

// IsInstalled reports whether any listing line contains model. Listing
// failures count as not installed.
func (c *Client) IsInstalled(ctx context.Context, model string) bool {
	lines, err := c.List(ctx)
	if err != nil {
		c.log.Warnw("Error checking if model is installed", "model", model, "error", err.Error())
		return false
	}
	for _, line := range lines {
		if strings.Contains(line, model) {
			return true
		}
	}
	return false
}

// Provision pulls model and blocks until the pull exits. No retries. The model
// name always follows "--" so it is never parsed as a flag.
func (c *Client) Provision(ctx context.Context, model string) bool {
	c.log.Infow("Downloading model", "model", model)
	out, err := c.command(ctx, "pull", c.timeouts.Pull, nil, "pull", "--", model)
	if err != nil {
		c.log.Warnw("Error during model download", "model", model, "error", err.Error(), "stderr", out.Stderr)
		metrics.Provisions.WithLabelValues(shared.MetricsOtherModel, "error").Inc()
		return false
	}
	if out.ExitCode != 0 {
		c.log.Warnw("Error downloading model", "model", model, "exit_code", out.ExitCode, "stderr", out.Stderr)
		metrics.Provisions.WithLabelValues(shared.MetricsOtherModel, "failed").Inc()
		return false
	}
	c.log.Infow("Model downloaded", "model", model)
	metrics.Provisions.WithLabelValues(model, "success").Inc()
	return true
}

// Run feeds prompt to the model on stdin. Stdout is returned verbatim on a
// zero exit, stderr otherwise.
func (c *Client) Run(ctx context.Context, model, prompt string) InvocationResult {
	out, err := c.command(ctx, "run", c.timeouts.Run, strings.NewReader(prompt), "run", "--", model)
	if err != nil {
		c.log.Warnw("Error executing model", "model", model, "error", err.Error(), "stderr", out.Stderr)
		text := err.Error()
		if out.Stderr != "" {
			text = out.Stderr
		}
		return InvocationResult{Output: text, ExitCode: out.ExitCode}
	}
	if out.ExitCode != 0 {
		c.log.Warnw("Model exited non-zero", "model", model, "exit_code", out.ExitCode, "stderr", out.Stderr)
		return InvocationResult{Output: out.Stderr, ExitCode: out.ExitCode}
	}
	return InvocationResult{Output: out.Stdout, OK: true}
}

func splitLines(s string) []string {
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
