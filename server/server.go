package server

import (
	"context"
	"net/http"
)

// HTTPServer exposes the bridge surface to network callers.
type HTTPServer interface {
	Handler() http.Handler
	Addr() string
	// ListenAndServe blocks until ctx is done and in-flight requests drain.
	ListenAndServe(ctx context.Context) error
}
