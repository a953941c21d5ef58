package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/faults"
	"github.com/prometheus/client_golang/prometheus"
)

type echoEngine struct{}

func (echoEngine) Format(_ context.Context, input string) (string, error) {
	return input, nil
}

func (echoEngine) Lint(_ context.Context, input string) (string, error) {
	if strings.Contains(input, "crash") {
		return "", bridge.EngineFailure(bridge.OperationLint, errors.New("parser panicked"))
	}
	return `[{"start":0,"end":1,"text":"warn","is_warning":true}]`, nil
}

func (echoEngine) NativeTypes(context.Context, string) (string, error) {
	return `[]`, nil
}

func (echoEngine) ReferentialActions(context.Context, string) (string, error) {
	return `["Cascade","Restrict"]`, nil
}

func (echoEngine) PreviewFeatures(context.Context) (string, error) {
	return `["fullTextSearch"]`, nil
}

func newTestServer(t *testing.T, options Options) *httptest.Server {
	t.Helper()

	surface, err := bridge.NewSurface(echoEngine{})
	if err != nil {
		t.Fatalf("NewSurface returned error: %v", err)
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.NewRegistry()
	}
	server, err := NewServer(surface, options)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)
	return httpServer
}

func doRequest(t *testing.T, method string, url string, body string) (*http.Response, string) {
	t.Helper()

	request, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response, string(data)
}

func decodeResult(t *testing.T, body string) bridge.Result {
	t.Helper()

	var result bridge.Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("decode result %q: %v", body, err)
	}
	return result
}

func TestOperationEndpoints(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, Options{})
	schema := "model A {\n  id Int @id\n}\n"

	t.Run("format_passes_text_through", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodPost, server.URL+"/v1/format", schema)
		if response.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", response.StatusCode, body)
		}
		if body != schema {
			t.Fatalf("expected unchanged schema, got %q", body)
		}
		if got := response.Header.Get("Content-Type"); got != "text/plain; charset=utf-8" {
			t.Fatalf("unexpected content type %q", got)
		}
	})

	t.Run("dashed_operation_name", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodPost, server.URL+"/v1/referential-actions", schema)
		if response.StatusCode != http.StatusOK || body != `["Cascade","Restrict"]` {
			t.Fatalf("unexpected response %d %q", response.StatusCode, body)
		}
		if got := response.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type %q", got)
		}
	})

	t.Run("preview_features_get", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodGet, server.URL+"/v1/preview_features", "")
		if response.StatusCode != http.StatusOK || body != `["fullTextSearch"]` {
			t.Fatalf("unexpected response %d %q", response.StatusCode, body)
		}
	})

	t.Run("version_unsupported", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodPost, server.URL+"/v1/version", "")
		if response.StatusCode != http.StatusNotImplemented {
			t.Fatalf("expected 501, got %d", response.StatusCode)
		}
		result := decodeResult(t, body)
		if result.Error == nil || result.Error.Category != faults.UnsupportedError {
			t.Fatalf("unexpected envelope %#v", result)
		}
	})

	t.Run("engine_failure", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodPost, server.URL+"/v1/lint", "crash")
		if response.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", response.StatusCode)
		}
		result := decodeResult(t, body)
		if result.Operation != bridge.OperationLint || result.Error.Category != faults.EngineError {
			t.Fatalf("unexpected envelope %#v", result)
		}
		if !strings.Contains(result.Error.Message, "parser panicked") {
			t.Fatalf("expected engine message, got %q", result.Error.Message)
		}
	})

	t.Run("unknown_operation", func(t *testing.T) {
		t.Parallel()

		response, body := doRequest(t, http.MethodPost, server.URL+"/v1/compile", schema)
		if response.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", response.StatusCode)
		}
		if decodeResult(t, body).Error.Category != faults.ValidationError {
			t.Fatalf("unexpected envelope %s", body)
		}
	})
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, Options{MaxBodyBytes: 8})
	response, body := doRequest(t, http.MethodPost, server.URL+"/v1/format", strings.Repeat("x", 9))
	if response.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", response.StatusCode)
	}
	if decodeResult(t, body).Error.Category != faults.ValidationError {
		t.Fatalf("unexpected envelope %s", body)
	}
}

func TestOperationsAndHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, Options{})

	response, body := doRequest(t, http.MethodGet, server.URL+"/v1/operations", "")
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	var descriptors []operationDescriptor
	if err := json.Unmarshal([]byte(body), &descriptors); err != nil {
		t.Fatalf("decode operations: %v", err)
	}
	if len(descriptors) != len(bridge.Operations()) {
		t.Fatalf("expected every operation listed, got %#v", descriptors)
	}

	response, _ = doRequest(t, http.MethodGet, server.URL+"/healthz", "")
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", response.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "prismafmt_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	server := newTestServer(t, Options{Gatherer: registry})
	response, body := doRequest(t, http.MethodGet, server.URL+"/metrics", "")
	if response.StatusCode != http.StatusOK || !strings.Contains(body, "prismafmt_test_total 1") {
		t.Fatalf("unexpected metrics response %d %q", response.StatusCode, body)
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		category faults.ErrorCategory
		want     int
	}{
		{faults.ValidationError, http.StatusBadRequest},
		{faults.NotFoundError, http.StatusNotFound},
		{faults.AuthError, http.StatusUnauthorized},
		{faults.ConflictError, http.StatusConflict},
		{faults.TransportError, http.StatusBadGateway},
		{faults.UnsupportedError, http.StatusNotImplemented},
		{faults.EngineError, http.StatusBadGateway},
		{faults.InternalError, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		if got := StatusCode(tc.category); got != tc.want {
			t.Fatalf("StatusCode(%s) = %d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	surface, err := bridge.NewSurface(echoEngine{})
	if err != nil {
		t.Fatalf("NewSurface returned error: %v", err)
	}
	server, err := NewServer(surface, Options{Gatherer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	response, body := doRequest(t, http.MethodPost, "http://"+listener.Addr().String()+"/v1/format", "x")
	if response.StatusCode != http.StatusOK || body != "x" {
		t.Fatalf("unexpected response %d %q", response.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestNewServerRequiresSurface(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(nil, Options{}); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
