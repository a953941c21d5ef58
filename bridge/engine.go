package bridge

import "context"

// Engine is the external formatter library as seen from the host. Each
// method forwards one text value across the engine's boundary and returns
// the engine's text unchanged.
//
// Implementations must be safe for concurrent use and must honor ctx
// cancellation where the boundary allows it.
type Engine interface {
	Format(ctx context.Context, input string) (string, error)
	Lint(ctx context.Context, input string) (string, error)
	NativeTypes(ctx context.Context, input string) (string, error)
	ReferentialActions(ctx context.Context, input string) (string, error)
	PreviewFeatures(ctx context.Context) (string, error)
}

// Versioner is implemented by engines able to report their version.
type Versioner interface {
	Version(ctx context.Context, input string) (string, error)
}

// Closer is implemented by engines holding runtime resources.
type Closer interface {
	Close(ctx context.Context) error
}
