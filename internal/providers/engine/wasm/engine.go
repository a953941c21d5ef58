package wasm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/faults"
)

var (
	_ bridge.Engine    = (*Engine)(nil)
	_ bridge.Versioner = (*Engine)(nil)
	_ bridge.Closer    = (*Engine)(nil)
)

type Options struct {
	// Path is read when Binary is empty.
	Path     string
	Binary   []byte
	PoolSize int
	ABI      string
}

func OptionsFromConfig(cfg config.WASMEngine) Options {
	return Options{Path: cfg.Path, PoolSize: cfg.PoolSize, ABI: cfg.ABI}
}

// Engine calls a prisma-fmt build compiled to WebAssembly. Each call runs on
// an instance taken from a bounded pool.
type Engine struct {
	module *runtimeModule
	abi    stringABI
	pool   *pool
}

func New(ctx context.Context, options Options) (*Engine, error) {
	binary := options.Binary
	if len(binary) == 0 {
		path := strings.TrimSpace(options.Path)
		if path == "" {
			return nil, validationError("engine.wasm.path is required", nil)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, notFoundError(fmt.Sprintf("wasm module %s not found", path), err)
			}
			return nil, internalError(fmt.Sprintf("failed to read wasm module %s", path), err)
		}
		binary = data
	}

	module, err := compileModule(ctx, binary)
	if err != nil {
		return nil, err
	}

	abi, err := selectABI(options.ABI, module)
	if err != nil {
		_ = module.close(ctx)
		return nil, err
	}

	size := options.PoolSize
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	debugctx.Printf(ctx, "wasm engine ready (abi=%s pool=%d)", abi.name(), size)

	return &Engine{
		module: module,
		abi:    abi,
		pool:   newPool(size, module.instantiate),
	}, nil
}

func selectABI(name string, module *runtimeModule) (stringABI, error) {
	switch strings.TrimSpace(name) {
	case "", config.ABIAuto:
		return detectABI(module.exports)
	default:
		return abiByName(strings.TrimSpace(name))
	}
}

func (e *Engine) Format(ctx context.Context, input string) (string, error) {
	return e.call(ctx, bridge.OperationFormat, input)
}

func (e *Engine) Lint(ctx context.Context, input string) (string, error) {
	return e.call(ctx, bridge.OperationLint, input)
}

func (e *Engine) NativeTypes(ctx context.Context, input string) (string, error) {
	return e.call(ctx, bridge.OperationNativeTypes, input)
}

func (e *Engine) ReferentialActions(ctx context.Context, input string) (string, error) {
	return e.call(ctx, bridge.OperationReferentialActions, input)
}

func (e *Engine) PreviewFeatures(ctx context.Context) (string, error) {
	return e.run(ctx, bridge.OperationPreviewFeatures, func(g guest) (string, error) {
		return e.abi.callNoInput(ctx, g, string(bridge.OperationPreviewFeatures))
	})
}

// Version reports UnsupportedError when the module has no version export or
// when the export traps.
func (e *Engine) Version(ctx context.Context, input string) (string, error) {
	if !e.module.hasExport(string(bridge.OperationVersion)) {
		return "", bridge.Unsupported(bridge.OperationVersion, nil)
	}
	output, err := e.call(ctx, bridge.OperationVersion, input)
	if err != nil && faults.IsCategory(err, faults.EngineError) {
		return "", bridge.Unsupported(bridge.OperationVersion, err)
	}
	return output, err
}

func (e *Engine) Close(ctx context.Context) error {
	e.pool.close(ctx)
	if err := e.module.close(ctx); err != nil {
		return internalError("failed to close wasm runtime", err)
	}
	return nil
}

func (e *Engine) call(ctx context.Context, operation bridge.Operation, input string) (string, error) {
	return e.run(ctx, operation, func(g guest) (string, error) {
		return e.abi.call(ctx, g, string(operation), input)
	})
}

func (e *Engine) run(ctx context.Context, operation bridge.Operation, fn func(g guest) (string, error)) (string, error) {
	inst, err := e.pool.get(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", canceledError(operation, ctxErr)
		}
		return "", err
	}

	output, callErr := fn(inst)

	var missing *missingExportError
	healthy := callErr == nil || errors.As(callErr, &missing)
	e.pool.put(ctx, inst, healthy)
	if !healthy {
		debugctx.Printf(ctx, "wasm %s failed, discarding instance: %v", operation, callErr)
	}

	if callErr != nil {
		return "", classifyCallError(ctx, operation, callErr)
	}
	return output, nil
}

func classifyCallError(ctx context.Context, operation bridge.Operation, err error) error {
	var missing *missingExportError
	if errors.As(err, &missing) {
		return bridge.Unsupported(operation, err)
	}
	if message, ok := thrownMessage(err); ok {
		return bridge.EngineFailure(operation, errors.New(message))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return canceledError(operation, ctxErr)
	}
	var typed *faults.TypedError
	if errors.As(err, &typed) {
		return err
	}
	return bridge.EngineFailure(operation, err)
}

func canceledError(operation bridge.Operation, err error) error {
	return faults.NewTypedError(faults.TransportError, fmt.Sprintf("engine %s canceled", operation), err)
}
