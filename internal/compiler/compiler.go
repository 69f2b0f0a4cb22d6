// Package compiler runs the upstream step that produces the pipeline
// manifest before a standalone script is generated from it.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/specialistvlad/pipegen/internal/ctxlog"
)

// DefaultTimeout bounds a compile command that sets no timeout of its own.
const DefaultTimeout = 10 * time.Minute

var (
	// ErrCompileFailed is returned when the compile command cannot be started
	// or exits unsuccessfully.
	ErrCompileFailed = errors.New("manifest compilation failed")

	// ErrCompileTimeout is returned when the compile command outlives its
	// timeout.
	ErrCompileTimeout = errors.New("manifest compilation timed out")
)

// Compiler produces the manifest consumed by the generator.
type Compiler interface {
	// Compile runs the compilation, appending args (for example mock flags)
	// to whatever the implementation invokes.
	Compile(ctx context.Context, args []string) error
}

// Noop is used when the manifest is already compiled.
type Noop struct{}

// Compile does nothing.
func (Noop) Compile(ctx context.Context, args []string) error {
	ctxlog.FromContext(ctx).Debug("Skipping manifest compilation.", "ignored_args", args)
	return nil
}

// Command runs an external program.
type Command struct {
	// Argv is the program and its fixed arguments.
	Argv []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
	// Output receives the program's combined stdout and stderr. When nil the
	// output is kept and logged only on failure.
	Output io.Writer
}

// Compile runs Argv followed by args.
func (c *Command) Compile(ctx context.Context, args []string) error {
	logger := ctxlog.FromContext(ctx)
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return fmt.Errorf("%w: empty compile command", ErrCompileFailed)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append([]string(nil), c.Argv[1:]...), args...)
	cmd := exec.CommandContext(ctx, c.Argv[0], argv...)
	cmd.Dir = c.Dir

	var captured bytes.Buffer
	out := io.Writer(&captured)
	if c.Output != nil {
		out = io.MultiWriter(&captured, c.Output)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	logger.Info("Compiling pipeline manifest.", "command", c.Argv[0], "args", argv, "timeout", timeout)
	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %s", ErrCompileTimeout, timeout, strings.Join(c.Argv, " "))
		}
		logger.Error("Compile command failed.", "output", strings.TrimSpace(captured.String()), "error", err)
		return fmt.Errorf("%w: %s: %w", ErrCompileFailed, c.Argv[0], err)
	}
	logger.Debug("Compile command finished.", "duration", time.Since(start))
	return nil
}
