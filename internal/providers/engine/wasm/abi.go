package wasm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/crmarques/prismafmt/config"
	"github.com/tetratelabs/wazero/api"
)

const (
	bindgenMalloc         = "__wbindgen_malloc"
	bindgenFree           = "__wbindgen_free"
	bindgenStackPointer   = "__wbindgen_add_to_stack_pointer"
	bindgenReturnSlotSize = 16

	packedAlloc   = "alloc"
	packedDealloc = "dealloc"
)

// memory is the part of guest linear memory the string ABIs touch.
type memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
}

type guestFunc struct {
	call   func(ctx context.Context, params ...uint64) ([]uint64, error)
	params int
}

// guest is one instantiated module as seen by an ABI.
type guest interface {
	Memory() memory
	Export(name string) (guestFunc, bool)
}

// stringABI moves a string into the guest, calls an export and copies the
// returned string out. Guest-owned buffers are released before returning.
type stringABI interface {
	name() string
	call(ctx context.Context, g guest, export string, input string) (string, error)
	callNoInput(ctx context.Context, g guest, export string) (string, error)
}

func abiByName(name string) (stringABI, error) {
	switch name {
	case config.ABIBindgen:
		return bindgenABI{}, nil
	case config.ABIPacked:
		return packedABI{}, nil
	default:
		return nil, validationError(fmt.Sprintf("unknown wasm string ABI %q", name), nil)
	}
}

// detectABI picks the ABI from the allocator exports of a module.
func detectABI(exports map[string]api.FunctionDefinition) (stringABI, error) {
	_, hasMalloc := exports[bindgenMalloc]
	_, hasStack := exports[bindgenStackPointer]
	if hasMalloc && hasStack {
		return bindgenABI{}, nil
	}
	_, hasAlloc := exports[packedAlloc]
	_, hasDealloc := exports[packedDealloc]
	if hasAlloc && hasDealloc {
		return packedABI{}, nil
	}
	return nil, validationError(
		fmt.Sprintf("wasm module exports neither %s/%s nor %s/%s", bindgenMalloc, bindgenStackPointer, packedAlloc, packedDealloc),
		nil,
	)
}

type bindgenABI struct{}

func (bindgenABI) name() string { return config.ABIBindgen }

func (a bindgenABI) call(ctx context.Context, g guest, export string, input string) (string, error) {
	return a.invoke(ctx, g, export, &input)
}

func (a bindgenABI) callNoInput(ctx context.Context, g guest, export string) (string, error) {
	return a.invoke(ctx, g, export, nil)
}

func (bindgenABI) invoke(ctx context.Context, g guest, export string, input *string) (string, error) {
	mem := g.Memory()
	if mem == nil {
		return "", errNoMemory
	}
	target, err := requireExport(g, export)
	if err != nil {
		return "", err
	}
	stack, err := requireExport(g, bindgenStackPointer)
	if err != nil {
		return "", err
	}
	// Every export is resolved before the stack pointer moves. After that the
	// pointer is only restored on success; a failed call discards the instance.
	var malloc guestFunc
	if input != nil && *input != "" {
		if malloc, err = requireExport(g, bindgenMalloc); err != nil {
			return "", err
		}
	}

	results, err := stack.call(ctx, api.EncodeI32(-bindgenReturnSlotSize))
	if err != nil {
		return "", err
	}
	retptr := api.DecodeU32(results[0])
	params := []uint64{api.EncodeU32(retptr)}

	if input != nil {
		ptr, length, err := bindgenPassString(ctx, malloc, mem, *input)
		if err != nil {
			return "", err
		}
		params = append(params, api.EncodeU32(ptr), api.EncodeU32(length))
	}

	if _, err := target.call(ctx, params...); err != nil {
		return "", err
	}

	resultPtr, ok := mem.ReadUint32Le(retptr)
	if !ok {
		return "", outOfRange("return slot", retptr, 8)
	}
	resultLen, ok := mem.ReadUint32Le(retptr + 4)
	if !ok {
		return "", outOfRange("return slot", retptr, 8)
	}
	output, err := copyOut(mem, resultPtr, resultLen)
	if err != nil {
		return "", err
	}

	if _, err := stack.call(ctx, api.EncodeI32(bindgenReturnSlotSize)); err != nil {
		return "", err
	}
	if resultLen > 0 {
		if err := bindgenRelease(ctx, g, resultPtr, resultLen); err != nil {
			return "", err
		}
	}
	return output, nil
}

func bindgenPassString(ctx context.Context, malloc guestFunc, mem memory, value string) (uint32, uint32, error) {
	length := uint32(len(value))
	if length == 0 {
		return 0, 0, nil
	}

	params := []uint64{api.EncodeU32(length)}
	if malloc.params >= 2 {
		params = append(params, api.EncodeU32(1))
	}
	results, err := malloc.call(ctx, params...)
	if err != nil {
		return 0, 0, err
	}
	ptr := api.DecodeU32(results[0])
	if !mem.Write(ptr, []byte(value)) {
		return 0, 0, outOfRange("input buffer", ptr, length)
	}
	return ptr, length, nil
}

func bindgenRelease(ctx context.Context, g guest, ptr uint32, length uint32) error {
	free, ok := g.Export(bindgenFree)
	if !ok {
		return nil
	}
	params := []uint64{api.EncodeU32(ptr), api.EncodeU32(length)}
	if free.params >= 3 {
		params = append(params, api.EncodeU32(1))
	}
	_, err := free.call(ctx, params...)
	return err
}

type packedABI struct{}

func (packedABI) name() string { return config.ABIPacked }

func (packedABI) call(ctx context.Context, g guest, export string, input string) (string, error) {
	mem := g.Memory()
	if mem == nil {
		return "", errNoMemory
	}
	target, err := requireExport(g, export)
	if err != nil {
		return "", err
	}

	var ptr, length uint32
	if len(input) > 0 {
		alloc, err := requireExport(g, packedAlloc)
		if err != nil {
			return "", err
		}
		length = uint32(len(input))
		results, err := alloc.call(ctx, api.EncodeU32(length))
		if err != nil {
			return "", err
		}
		ptr = api.DecodeU32(results[0])
		if !mem.Write(ptr, []byte(input)) {
			return "", outOfRange("input buffer", ptr, length)
		}
	}

	results, err := target.call(ctx, api.EncodeU32(ptr), api.EncodeU32(length))
	if err != nil {
		return "", err
	}
	output, resultPtr, err := packedResult(ctx, g, mem, results)
	if err != nil {
		return "", err
	}
	// A guest may hand its input buffer back as the result; it is released once.
	if length > 0 && !(resultPtr == ptr && output != "") {
		if err := packedRelease(ctx, g, ptr, length); err != nil {
			return "", err
		}
	}
	return output, nil
}

func (packedABI) callNoInput(ctx context.Context, g guest, export string) (string, error) {
	mem := g.Memory()
	if mem == nil {
		return "", errNoMemory
	}
	target, err := requireExport(g, export)
	if err != nil {
		return "", err
	}
	results, err := target.call(ctx)
	if err != nil {
		return "", err
	}
	output, _, err := packedResult(ctx, g, mem, results)
	return output, err
}

// packedResult copies out and releases the result buffer, returning its
// address so callers can tell it apart from their input buffer.
func packedResult(ctx context.Context, g guest, mem memory, results []uint64) (string, uint32, error) {
	if len(results) != 1 {
		return "", 0, engineError(fmt.Sprintf("expected one packed result, got %d", len(results)), nil)
	}
	ptr := uint32(results[0] >> 32)
	length := uint32(results[0])
	output, err := copyOut(mem, ptr, length)
	if err != nil {
		return "", 0, err
	}
	if length > 0 {
		if err := packedRelease(ctx, g, ptr, length); err != nil {
			return "", 0, err
		}
	}
	return output, ptr, nil
}

func packedRelease(ctx context.Context, g guest, ptr uint32, length uint32) error {
	dealloc, ok := g.Export(packedDealloc)
	if !ok {
		return nil
	}
	_, err := dealloc.call(ctx, api.EncodeU32(ptr), api.EncodeU32(length))
	return err
}

// copyOut copies guest bytes because the view is invalidated when memory grows.
func copyOut(mem memory, ptr uint32, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return "", outOfRange("result buffer", ptr, length)
	}
	if !utf8.Valid(view) {
		return "", engineError("engine returned invalid UTF-8", nil)
	}
	return string(view), nil
}

func requireExport(g guest, name string) (guestFunc, error) {
	fn, ok := g.Export(name)
	if !ok {
		return guestFunc{}, &missingExportError{name: name}
	}
	return fn, nil
}

type missingExportError struct {
	name string
}

func (e *missingExportError) Error() string {
	return fmt.Sprintf("wasm module does not export %q", e.name)
}

func outOfRange(what string, ptr uint32, length uint32) error {
	return engineError(fmt.Sprintf("%s [%d, +%d) is outside guest memory", what, ptr, length), nil)
}
