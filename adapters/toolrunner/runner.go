// Package toolrunner launches the renderer and slicer subprocesses.
package toolrunner

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"traylib/internal/errors"
	"traylib/internal/logging"
)

// Result is the captured outcome of one subprocess.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes a command given as an argument list. A non-zero exit is
// returned as an ExternalTool error alongside the populated Result.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the tool itself was killed.
const waitDelay = 2 * time.Second

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	// Timeout bounds each subprocess; zero means no limit.
	Timeout time.Duration
	// Dir is the working directory; empty means the current one.
	Dir string
}

// NewExecRunner creates a host runner.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes argv and waits for it.
func (r *ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{ExitCode: -1}, errors.Internal("empty command", nil)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("starting subprocess", zap.String("tool", argv[0]), zap.Int("args", len(argv)-1))

	start := time.Now()
	err := cmd.Run()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		logging.Debug("subprocess finished", zap.String("tool", argv[0]), zap.Duration("duration", res.Duration))
		return res, nil
	}

	res.ExitCode = -1
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	logging.Warn("subprocess failed",
		zap.String("tool", argv[0]),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Error(err),
	)
	return res, errors.ExternalTool(argv[0], res.ExitCode, res.Stderr, err).
		WithContext("stdout", res.Stdout)
}

// SlicerCommand builds the slice command for a model. With no configured
// command the platform slice script in the working directory is used.
func SlicerCommand(configured []string, model string) []string {
	cmd := configured
	if len(cmd) == 0 {
		cmd = DefaultSlicer()
	}
	return append(append([]string(nil), cmd...), model)
}

// DefaultSlicer returns the slice script for the host platform.
func DefaultSlicer() []string {
	if runtime.GOOS == "windows" {
		return []string{"slice.bat"}
	}
	return []string{"./slice.sh"}
}

// Available reports whether the executable can be found on PATH (or at the
// given path).
func Available(executable string) bool {
	if strings.TrimSpace(executable) == "" {
		return false
	}
	_, err := exec.LookPath(executable)
	return err == nil
}
