package wasm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const wasiModuleName = "wasi_snapshot_preview1"

// runtimeModule is a compiled module with every import it needs already
// registered in its runtime.
type runtimeModule struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	exports  map[string]api.FunctionDefinition
}

func compileModule(ctx context.Context, binary []byte) (*runtimeModule, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	compiled, err := runtime.CompileModule(ctx, binary)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, validationError("failed to compile wasm module", err)
	}

	if err := registerImports(ctx, runtime, compiled); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return &runtimeModule{
		runtime:  runtime,
		compiled: compiled,
		exports:  compiled.ExportedFunctions(),
	}, nil
}

// registerImports instantiates WASI when the module asks for it and satisfies
// every other function import with a stub. Stubs for throw imports abort the
// call with the guest's message; the rest return zero values.
func registerImports(ctx context.Context, runtime wazero.Runtime, compiled wazero.CompiledModule) error {
	byModule := map[string][]api.FunctionDefinition{}
	for _, imported := range compiled.ImportedFunctions() {
		moduleName, _, _ := imported.Import()
		byModule[moduleName] = append(byModule[moduleName], imported)
	}

	moduleNames := make([]string, 0, len(byModule))
	for moduleName := range byModule {
		moduleNames = append(moduleNames, moduleName)
	}
	sort.Strings(moduleNames)

	for _, moduleName := range moduleNames {
		if moduleName == wasiModuleName {
			if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
				return internalError("failed to instantiate WASI", err)
			}
			continue
		}

		builder := runtime.NewHostModuleBuilder(moduleName)
		for _, imported := range byModule[moduleName] {
			_, name, _ := imported.Import()
			builder.NewFunctionBuilder().
				WithGoModuleFunction(stubFunction(name, imported), imported.ParamTypes(), imported.ResultTypes()).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return internalError(fmt.Sprintf("failed to provide imports of %q", moduleName), err)
		}
	}
	return nil
}

func isThrowImport(name string) bool {
	return strings.Contains(name, "throw") || strings.HasSuffix(name, "_panic")
}

func stubFunction(name string, definition api.FunctionDefinition) api.GoModuleFunction {
	results := len(definition.ResultTypes())
	params := definition.ParamTypes()
	throws := isThrowImport(name) && len(params) >= 2 &&
		params[0] == api.ValueTypeI32 && params[1] == api.ValueTypeI32

	return api.GoModuleFunc(func(_ context.Context, module api.Module, stack []uint64) {
		if throws {
			panic(&thrownError{message: readGuestString(module, stack[0], stack[1], name)})
		}
		if isThrowImport(name) {
			panic(&thrownError{message: name})
		}
		for i := 0; i < results; i++ {
			stack[i] = 0
		}
	})
}

func readGuestString(module api.Module, ptr uint64, length uint64, fallback string) string {
	mem := module.Memory()
	if mem == nil {
		return fallback
	}
	view, ok := mem.Read(api.DecodeU32(ptr), api.DecodeU32(length))
	if !ok {
		return fallback
	}
	return string(view)
}

func (m *runtimeModule) instantiate(ctx context.Context) (*instance, error) {
	module, err := m.runtime.InstantiateModule(
		ctx,
		m.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize"),
	)
	if err != nil {
		return nil, engineError("failed to instantiate wasm module", err)
	}
	return &instance{module: module}, nil
}

func (m *runtimeModule) hasExport(name string) bool {
	_, ok := m.exports[name]
	return ok
}

func (m *runtimeModule) close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

// instance adapts a wazero module to the guest view the ABIs use. It is not
// safe for concurrent use.
type instance struct {
	module api.Module
}

func (i *instance) Memory() memory {
	mem := i.module.Memory()
	if mem == nil {
		return nil
	}
	return mem
}

func (i *instance) Export(name string) (guestFunc, bool) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return guestFunc{}, false
	}
	return guestFunc{call: fn.Call, params: len(fn.Definition().ParamTypes())}, true
}

func (i *instance) close(ctx context.Context) {
	if i.module == nil {
		return
	}
	_ = i.module.Close(ctx)
}
