package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/faults"
)

// Caller is the part of the bridge surface schema commands need.
type Caller interface {
	Call(ctx context.Context, operation bridge.Operation, input string) (string, error)
}

type Dependencies struct {
	Surface Caller
}

type Request struct {
	Operation bridge.Operation
	Input     string
	// SourcePath is the file Input was read from; empty for stdin.
	SourcePath string
	// Write replaces SourcePath with the formatted output.
	Write bool
	// Query is a jq expression evaluated against JSON output.
	Query string
}

type Result struct {
	Output  string
	Changed bool
	Written bool
}

func Execute(ctx context.Context, deps Dependencies, req Request) (Result, error) {
	if deps.Surface == nil {
		return Result{}, faults.NewTypedError(faults.ValidationError, "bridge surface is not configured", nil)
	}
	if req.Write && req.Operation != bridge.OperationFormat {
		return Result{}, faults.NewTypedError(faults.ValidationError, "--write is supported only by format", nil)
	}
	if req.Write && strings.TrimSpace(req.SourcePath) == "" {
		return Result{}, faults.NewTypedError(faults.ValidationError, "--write requires a schema file path", nil)
	}

	debugctx.Printf(ctx, "schema operation=%q source=%q bytes=%d", req.Operation, req.SourcePath, len(req.Input))

	output, err := deps.Surface.Call(ctx, req.Operation, req.Input)
	if err != nil {
		return Result{}, err
	}

	result := Result{Output: output, Changed: output != req.Input}
	if strings.TrimSpace(req.Query) != "" {
		queried, err := ApplyQuery(ctx, output, req.Query)
		if err != nil {
			return Result{}, err
		}
		result.Output = queried
	}

	if req.Write {
		if result.Changed {
			if err := replaceFile(req.SourcePath, output); err != nil {
				return Result{}, err
			}
			result.Written = true
		}
		debugctx.Printf(ctx, "format write path=%q changed=%t", req.SourcePath, result.Changed)
	}

	return result, nil
}

// replaceFile swaps the file content through a sibling temp file and keeps
// the original permissions.
func replaceFile(path string, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("schema file %s not found", path), err)
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".prisma-fmt-*")
	if err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to create temporary schema file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.WriteString(content); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return faults.NewTypedError(faults.InternalError, "failed to write schema file", err)
	}
	if err := tempFile.Chmod(info.Mode().Perm()); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return faults.NewTypedError(faults.InternalError, "failed to set schema file permissions", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return faults.NewTypedError(faults.InternalError, "failed to finalize schema file", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return faults.NewTypedError(faults.InternalError, "failed to replace schema file", err)
	}
	return nil
}
