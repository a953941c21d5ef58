package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/faults"
	"github.com/crmarques/prismafmt/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type Options struct {
	Listen       string
	MaxBodyBytes int64
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
}

func OptionsFromConfig(cfg config.Server, gatherer prometheus.Gatherer) Options {
	return Options{Listen: cfg.Listen, MaxBodyBytes: cfg.MaxBodyBytes, Gatherer: gatherer}
}

var _ server.HTTPServer = (*Server)(nil)

// Server exposes a bridge surface over HTTP. Each request is one engine call.
type Server struct {
	surface *bridge.Surface
	options Options
	handler stdhttp.Handler
}

func NewServer(surface *bridge.Surface, options Options) (*Server, error) {
	if surface == nil {
		return nil, validationError("bridge surface is required", nil)
	}
	if strings.TrimSpace(options.Listen) == "" {
		options.Listen = config.DefaultListen
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{surface: surface, options: options}

	mux := stdhttp.NewServeMux()
	mux.HandleFunc("POST /v1/{operation}", s.handleOperation)
	mux.HandleFunc("GET /v1/preview_features", s.handlePreviewFeatures)
	mux.HandleFunc("GET /v1/operations", s.handleOperations)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(options.Gatherer, promhttp.HandlerOpts{}))
	s.handler = logRequests(mux)

	return s, nil
}

func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

func (s *Server) Addr() string {
	return s.options.Listen
}

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.options.Listen)
	if err != nil {
		return transportError(fmt.Sprintf("failed to listen on %s", s.options.Listen), err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &stdhttp.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		debugctx.Logger(ctx).Info("serving prisma-fmt bridge", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return transportError("http server failed", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return transportError("http server shutdown failed", err)
		}
		return nil
	})
	return group.Wait()
}

func (s *Server) handleOperation(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	operation, err := bridge.ParseOperation(r.PathValue("operation"))
	if err != nil {
		writeResult(w, bridge.NewResult(bridge.Operation(r.PathValue("operation")), "", err))
		return
	}

	input := ""
	if operation.TakesInput() {
		body, err := io.ReadAll(stdhttp.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes))
		if err != nil {
			var tooLarge *stdhttp.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, stdhttp.StatusRequestEntityTooLarge, bridge.NewResult(operation, "", validationError(
					fmt.Sprintf("request body exceeds %d bytes", s.options.MaxBodyBytes), nil,
				)))
				return
			}
			writeResult(w, bridge.NewResult(operation, "", validationError("failed to read request body", err)))
			return
		}
		input = string(body)
	}

	s.respond(w, r, operation, input)
}

func (s *Server) handlePreviewFeatures(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.respond(w, r, bridge.OperationPreviewFeatures, "")
}

func (s *Server) respond(w stdhttp.ResponseWriter, r *stdhttp.Request, operation bridge.Operation, input string) {
	result := s.surface.Invoke(r.Context(), operation, input)
	if !result.OK() {
		writeResult(w, result)
		return
	}
	w.Header().Set("Content-Type", operation.ContentType())
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = io.WriteString(w, result.Output)
}

type operationDescriptor struct {
	Name       bridge.Operation `json:"name"`
	TakesInput bool             `json:"takesInput"`
	Output     string           `json:"contentType"`
}

func (s *Server) handleOperations(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	operations := bridge.Operations()
	descriptors := make([]operationDescriptor, 0, len(operations))
	for _, operation := range operations {
		descriptors = append(descriptors, operationDescriptor{
			Name:       operation,
			TakesInput: operation.TakesInput(),
			Output:     operation.ContentType(),
		})
	}
	writeJSON(w, stdhttp.StatusOK, descriptors)
}

func (s *Server) handleHealth(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
}

func writeResult(w stdhttp.ResponseWriter, result bridge.Result) {
	category := faults.InternalError
	if result.Error != nil {
		category = result.Error.Category
	}
	writeJSON(w, StatusCode(category), result)
}

func writeJSON(w stdhttp.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

type statusRecorder struct {
	stdhttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: stdhttp.StatusOK}
		next.ServeHTTP(recorder, r)
		debugctx.Logger(r.Context()).V(1).Info(
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(started),
		)
	})
}
