package binary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/faults"
)

const (
	maxOutputBytes = 64 << 20
	maxStderrBytes = 64 << 10
	waitDelay      = 2 * time.Second
)

var (
	_ bridge.Engine    = (*Engine)(nil)
	_ bridge.Versioner = (*Engine)(nil)
)

type Options struct {
	Path    string
	Timeout time.Duration
	// Env is appended to the current environment of each run.
	Env []string
}

func OptionsFromConfig(cfg config.BinaryEngine) Options {
	return Options{Path: cfg.Path, Timeout: cfg.TimeoutDuration()}
}

// Engine runs the prisma-fmt CLI once per call with the input on stdin.
type Engine struct {
	path    string
	timeout time.Duration
	env     []string
}

func New(options Options) (*Engine, error) {
	path := strings.TrimSpace(options.Path)
	if path == "" {
		return nil, faults.NewTypedError(faults.ValidationError, "engine.binary.path is required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("prisma-fmt binary %s not found", path), err)
		}
		return nil, faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to inspect prisma-fmt binary %s", path), err)
	}
	if info.IsDir() {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("prisma-fmt binary %s is a directory", path), nil)
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = config.DefaultBinaryTimeout
	}
	return &Engine{path: path, timeout: timeout, env: append([]string(nil), options.Env...)}, nil
}

func (e *Engine) Path() string {
	return e.path
}

func (e *Engine) Format(ctx context.Context, input string) (string, error) {
	return e.run(ctx, bridge.OperationFormat, []string{bridge.OperationFormat.CommandName()}, &input)
}

func (e *Engine) Lint(ctx context.Context, input string) (string, error) {
	return e.run(ctx, bridge.OperationLint, []string{bridge.OperationLint.CommandName()}, &input)
}

func (e *Engine) NativeTypes(ctx context.Context, input string) (string, error) {
	return e.run(ctx, bridge.OperationNativeTypes, []string{bridge.OperationNativeTypes.CommandName()}, &input)
}

func (e *Engine) ReferentialActions(ctx context.Context, input string) (string, error) {
	return e.run(ctx, bridge.OperationReferentialActions, []string{bridge.OperationReferentialActions.CommandName()}, &input)
}

func (e *Engine) PreviewFeatures(ctx context.Context) (string, error) {
	return e.run(ctx, bridge.OperationPreviewFeatures, []string{bridge.OperationPreviewFeatures.CommandName()}, nil)
}

// Version ignores input; the CLI prints "prisma-fmt <hash>".
func (e *Engine) Version(ctx context.Context, _ string) (string, error) {
	output, err := e.run(ctx, bridge.OperationVersion, []string{"--version"}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func (e *Engine) run(ctx context.Context, operation bridge.Operation, args []string, input *string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.path, args...)
	cmd.WaitDelay = waitDelay
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	if input != nil {
		cmd.Stdin = strings.NewReader(*input)
	}

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, max: maxOutputBytes}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = &limitedWriter{w: &stderr, max: maxStderrBytes}

	debugctx.Printf(ctx, "running %s %s", e.path, strings.Join(args, " "))
	err := cmd.Run()

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return "", faults.NewTypedError(faults.TransportError, fmt.Sprintf("engine %s canceled", operation), ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return "", bridge.EngineFailure(operation, fmt.Errorf("timed out after %s", e.timeout))
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			message := strings.TrimSpace(stderr.String())
			if message == "" {
				message = exitErr.Error()
			}
			return "", bridge.EngineFailure(operation, errors.New(message))
		}
		return "", faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to run %s", e.path), err)
	}

	if stdoutLimited.truncated {
		return "", bridge.EngineFailure(operation, fmt.Errorf("output exceeds %d bytes", maxOutputBytes))
	}
	return stdout.String(), nil
}

type limitedWriter struct {
	w         *bytes.Buffer
	max       int
	truncated bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	remaining := l.max - l.w.Len()
	if remaining <= 0 {
		l.truncated = l.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		l.w.Write(p[:remaining])
		l.truncated = true
		return len(p), nil
	}
	return l.w.Write(p)
}
