package bridge

import (
	"context"

	"github.com/crmarques/prismafmt/faults"
)

// Surface is the export surface of the bridge. Every operation is a single
// synchronous delegation to the engine; inputs and outputs are passed through
// untouched and no state is kept between calls.
type Surface struct {
	engine Engine
}

func NewSurface(engine Engine) (*Surface, error) {
	if engine == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "engine is required", nil)
	}
	return &Surface{engine: engine}, nil
}

func (s *Surface) Engine() Engine {
	return s.engine
}

func (s *Surface) Format(ctx context.Context, input string) (string, error) {
	return s.engine.Format(ctx, input)
}

func (s *Surface) Lint(ctx context.Context, input string) (string, error) {
	return s.engine.Lint(ctx, input)
}

func (s *Surface) NativeTypes(ctx context.Context, input string) (string, error) {
	return s.engine.NativeTypes(ctx, input)
}

func (s *Surface) ReferentialActions(ctx context.Context, input string) (string, error) {
	return s.engine.ReferentialActions(ctx, input)
}

func (s *Surface) PreviewFeatures(ctx context.Context) (string, error) {
	return s.engine.PreviewFeatures(ctx)
}

// Version returns the engine version or an UnsupportedError outcome when the
// engine cannot report one. It never aborts.
func (s *Surface) Version(ctx context.Context, input string) (string, error) {
	versioner, ok := s.engine.(Versioner)
	if !ok {
		return "", Unsupported(OperationVersion, nil)
	}
	return versioner.Version(ctx, input)
}

// Call dispatches by operation. The input of preview_features is ignored.
func (s *Surface) Call(ctx context.Context, operation Operation, input string) (string, error) {
	switch operation {
	case OperationFormat:
		return s.Format(ctx, input)
	case OperationLint:
		return s.Lint(ctx, input)
	case OperationNativeTypes:
		return s.NativeTypes(ctx, input)
	case OperationReferentialActions:
		return s.ReferentialActions(ctx, input)
	case OperationPreviewFeatures:
		return s.PreviewFeatures(ctx)
	case OperationVersion:
		return s.Version(ctx, input)
	default:
		return "", validationError("unknown operation "+string(operation), nil)
	}
}

func (s *Surface) Invoke(ctx context.Context, operation Operation, input string) Result {
	output, err := s.Call(ctx, operation, input)
	return NewResult(operation, output, err)
}

func (s *Surface) Close(ctx context.Context) error {
	closer, ok := s.engine.(Closer)
	if !ok {
		return nil
	}
	return closer.Close(ctx)
}
