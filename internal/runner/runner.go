// Package runner executes the notion-dev CLI on behalf of MCP tools that
// delegate to it, distinguishing missing binaries, timeouts, and command
// failures so callers can surface actionable messages.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single CLI invocation.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotInstalled means the binary was not found on PATH.
	ErrNotInstalled = errors.New("notion-dev is not installed")

	// ErrTimeout means the command exceeded its deadline.
	ErrTimeout = errors.New("notion-dev command timed out")
)

// CommandError wraps a non-zero exit with the command's stderr.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("notion-dev %v exited %d: %s", e.Args, e.ExitCode, e.Stderr)
}

// Runner invokes the CLI binary.
type Runner struct {
	binary  string
	dir     string
	timeout time.Duration
	log     *zap.Logger

	// lookPath is swapped in tests.
	lookPath func(string) (string, error)
}

// New creates a Runner executing the given binary in dir. An empty binary
// defaults to "notion-dev" on PATH.
func New(binary, dir string, log *zap.Logger) *Runner {
	if binary == "" {
		binary = "notion-dev"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		binary:   binary,
		dir:      dir,
		timeout:  DefaultTimeout,
		log:      log,
		lookPath: exec.LookPath,
	}
}

// Installed reports whether the binary is on PATH.
func (r *Runner) Installed() bool {
	_, err := r.lookPath(r.binary)
	return err == nil
}

// Run executes the CLI with the given arguments and returns its stdout.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	if !r.Installed() {
		return "", ErrNotInstalled
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.log.Debug("cli invocation",
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w after %s: notion-dev %v", ErrTimeout, r.timeout, args)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("running notion-dev %v: %w", args, err)
	}

	return stdout.String(), nil
}
