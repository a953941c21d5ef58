package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/crmarques/prismafmt/engines"
)

const maxChecksumBytes = 4 << 10

// artifact is a gzip stream of one engine file and the published hex sha256
// of its decompressed content. checksum is empty when none is published.
type artifact struct {
	body     io.ReadCloser
	checksum string
}

type source interface {
	open(ctx context.Context, version string, engine engines.EngineType, target engines.Target) (artifact, error)
	describe(version string, engine engines.EngineType, target engines.Target) string
}

type httpSource struct {
	mirror string
	client *http.Client
}

func (s *httpSource) describe(version string, engine engines.EngineType, target engines.Target) string {
	return engines.DownloadURL(s.mirror, version, engine, target)
}

func (s *httpSource) open(
	ctx context.Context,
	version string,
	engine engines.EngineType,
	target engines.Target,
) (artifact, error) {
	checksum, err := s.fetchChecksum(ctx, engines.ChecksumURL(s.mirror, version, engine, target))
	if err != nil {
		return artifact{}, err
	}

	downloadURL := engines.DownloadURL(s.mirror, version, engine, target)
	response, err := s.get(ctx, downloadURL)
	if err != nil {
		return artifact{}, err
	}
	if response.StatusCode == http.StatusNotFound {
		_ = response.Body.Close()
		return artifact{}, notFoundError(fmt.Sprintf("engine artifact %s not found", downloadURL), nil)
	}
	if response.StatusCode >= http.StatusBadRequest {
		_ = response.Body.Close()
		return artifact{}, transportError(
			fmt.Sprintf("engine download %s failed with status %d", downloadURL, response.StatusCode),
			nil,
		)
	}

	return artifact{body: response.Body, checksum: checksum}, nil
}

func (s *httpSource) fetchChecksum(ctx context.Context, checksumURL string) (string, error) {
	response, err := s.get(ctx, checksumURL)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if response.StatusCode >= http.StatusBadRequest {
		return "", transportError(
			fmt.Sprintf("checksum download %s failed with status %d", checksumURL, response.StatusCode),
			nil,
		)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, maxChecksumBytes))
	if err != nil {
		return "", transportError("failed to read engine checksum", err)
	}
	return parseChecksum(string(data)), nil
}

func (s *httpSource) get(ctx context.Context, rawURL string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, validationError("engine mirror URL is invalid", err)
	}
	response, err := s.client.Do(request)
	if err != nil {
		return nil, transportError(fmt.Sprintf("failed to download %s", rawURL), err)
	}
	return response, nil
}

// parseChecksum accepts bare digests and `sha256sum` lines.
func parseChecksum(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
