package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Invocation describes one external process. Args is an argument vector;
// nothing is interpreted by a shell.
type Invocation struct {
	Args    []string
	Dir     string
	Stdin   string
	Env     []string // appended to the host environment
	Timeout time.Duration
}

// ToolchainOutput is what a finished (or killed) process left behind.
type ToolchainOutput struct {
	Stdout        string
	Stderr        string
	ExitCode      int
	ExitedCleanly bool
}

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	RunCommand(ctx context.Context, inv Invocation) (ToolchainOutput, error)
}

// ToolchainRunner implements CommandRunner with os/exec. At most
// maxConcurrent processes run at once across all requests.
type ToolchainRunner struct {
	logger    *zap.Logger
	slots     *semaphore.Weighted
	waitDelay time.Duration
}

// NewToolchainRunner creates a runner; maxConcurrent <= 0 disables the bound.
func NewToolchainRunner(logger *zap.Logger, maxConcurrent int) *ToolchainRunner {
	r := &ToolchainRunner{
		logger:    logger,
		waitDelay: time.Second,
	}
	if maxConcurrent > 0 {
		r.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return r
}

// RunCommand spawns exactly one process and waits for it. A timeout kills
// the process and returns ErrTimeout along with whatever was captured. Exit
// codes are reported, not interpreted.
func (r *ToolchainRunner) RunCommand(ctx context.Context, inv Invocation) (ToolchainOutput, error) {
	if len(inv.Args) < 1 {
		return ToolchainOutput{}, fmt.Errorf("no command provided")
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// The deadline covers waiting for a slot as well as the run itself.
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if r.slots != nil {
		if err := r.acquireSlot(ctx, ctxWithTimeout); err != nil {
			return ToolchainOutput{}, fmt.Errorf("%s: waiting for process slot: %w", inv.Args[0], err)
		}
		defer r.slots.Release(1)
	}

	cmd := exec.CommandContext(ctxWithTimeout, inv.Args[0], inv.Args[1:]...) //nolint:gosec // Running user toolchains is intended functionality
	cmd.Dir = inv.Dir
	cmd.WaitDelay = r.waitDelay
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	started := time.Now()
	err := cmd.Run()

	out := ToolchainOutput{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	r.logger.Debug("toolchain process finished",
		zap.String("command", inv.Args[0]),
		zap.Duration("duration", time.Since(started)),
		zap.Error(err))

	if timedOut(err, ctxWithTimeout, ctx) {
		out.ExitCode = -1
		return out, fmt.Errorf("%s: %w", inv.Args[0], ErrTimeout)
	}

	if err != nil && ctx.Err() != nil {
		return out, fmt.Errorf("%s: %w", inv.Args[0], ctx.Err())
	}

	if err != nil {
		var exitError *exec.ExitError
		switch {
		case errors.As(err, &exitError):
			out.ExitCode = exitError.ExitCode()
			return out, nil
		case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
			out.ExitCode = cmd.ProcessState.ExitCode()
			out.ExitedCleanly = cmd.ProcessState.Success()
			return out, nil
		default:
			return out, fmt.Errorf("failed to run %s: %w", inv.Args[0], err)
		}
	}

	out.ExitedCleanly = true
	return out, nil
}

// acquireSlot waits for a free process slot until runCtx expires. Running
// out of time is ErrTimeout; a cancelled caller gets its own context error.
func (r *ToolchainRunner) acquireSlot(parent, runCtx context.Context) error {
	err := r.slots.Acquire(runCtx, 1)
	switch {
	case err == nil:
		return nil
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	default:
		return err
	}
}

// timedOut reports whether runErr was caused by the invocation deadline. A
// process that exited on its own is never a timeout, even when the deadline
// passed while its result was being collected.
func timedOut(runErr error, runCtx, parent context.Context) bool {
	return runErr != nil &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) &&
		parent.Err() == nil
}
