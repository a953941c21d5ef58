package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/internal/providers/shared/fsutil"
	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"
	"golang.org/x/time/rate"
)

const (
	cacheReadyMarkerFile = ".prisma-fmt-ready"
	maxEngineFileBytes   = 512 << 20
)

type cacheEntry struct {
	path   string
	digest digest.Digest
}

func (f *Fetcher) cacheEntryDir(version string, engine engines.EngineType, target engines.Target) string {
	return filepath.Join(f.cacheDir, version, string(target), engines.RemoteName(engine, target))
}

func loadCacheEntry(dir string, fileName string) (cacheEntry, bool, error) {
	marker, err := os.ReadFile(filepath.Join(dir, cacheReadyMarkerFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cacheEntry{}, false, nil
		}
		return cacheEntry{}, false, internalError("failed to inspect engine cache readiness marker", err)
	}

	recorded, err := digest.Parse(strings.TrimSpace(string(marker)))
	if err != nil {
		return cacheEntry{}, false, internalError("engine cache readiness marker is corrupt", err)
	}

	path := filepath.Join(dir, fileName)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cacheEntry{}, false, internalError("engine cache entry is missing its file", err)
		}
		return cacheEntry{}, false, internalError("failed to inspect engine cache entry", err)
	}
	if info.IsDir() {
		return cacheEntry{}, false, internalError("engine cache entry is not a file", nil)
	}

	return cacheEntry{path: path, digest: recorded}, true, nil
}

// lookupCacheEntry never downloads.
func (f *Fetcher) lookupCacheEntry(version string, engine engines.EngineType, target engines.Target) (cacheEntry, bool) {
	entry, ok, err := loadCacheEntry(f.cacheEntryDir(version, engine, target), engines.RemoteName(engine, target))
	if err != nil {
		return cacheEntry{}, false
	}
	return entry, ok
}

// ensureCacheEntry downloads each distinct artifact once, even when several
// requests ask for it concurrently.
func (f *Fetcher) ensureCacheEntry(
	ctx context.Context,
	version string,
	engine engines.EngineType,
	target engines.Target,
) (cacheEntry, error) {
	dir := f.cacheEntryDir(version, engine, target)
	fileName := engines.RemoteName(engine, target)

	value, err, _ := f.group.Do(dir, func() (any, error) {
		entry, ok, loadErr := loadCacheEntry(dir, fileName)
		if loadErr == nil && ok {
			return entry, nil
		}
		if loadErr != nil {
			_ = os.RemoveAll(dir)
		}
		return f.installCacheEntry(ctx, dir, version, engine, target)
	})
	if err != nil {
		return cacheEntry{}, err
	}
	return value.(cacheEntry), nil
}

func (f *Fetcher) installCacheEntry(
	ctx context.Context,
	dir string,
	version string,
	engine engines.EngineType,
	target engines.Target,
) (cacheEntry, error) {
	if !fsutil.Within(f.cacheDir, dir) {
		return cacheEntry{}, validationError(fmt.Sprintf("engine cache entry %s is outside %s", dir, f.cacheDir), nil)
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return cacheEntry{}, internalError("failed to create engine cache directory", err)
	}

	fileName := engines.RemoteName(engine, target)
	tmpDir, err := os.MkdirTemp(parent, fileName+".tmp-")
	if err != nil {
		return cacheEntry{}, internalError("failed to create engine cache temporary directory", err)
	}
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.RemoveAll(tmpDir)
			_ = fsutil.PruneEmptyDirs(parent, f.cacheDir)
		}
	}()

	label := f.source.describe(version, engine, target)
	debugctx.Printf(ctx, "downloading %s", label)

	downloaded, err := f.source.open(ctx, version, engine, target)
	if err != nil {
		return cacheEntry{}, err
	}
	defer downloaded.body.Close()

	if downloaded.checksum == "" && !f.ignoreMissingChecksum {
		return cacheEntry{}, validationError(
			fmt.Sprintf("no checksum is published for %s; set %s=1 to skip verification", label, config.ChecksumIgnoreMissingEnvVar),
			nil,
		)
	}

	actual, err := f.decompressTo(ctx, downloaded.body, filepath.Join(tmpDir, fileName), label)
	if err != nil {
		return cacheEntry{}, err
	}

	if downloaded.checksum != "" {
		expected := digest.NewDigestFromEncoded(digest.SHA256, downloaded.checksum)
		if err := expected.Validate(); err != nil {
			return cacheEntry{}, validationError(fmt.Sprintf("published checksum for %s is malformed", label), err)
		}
		if expected != actual {
			return cacheEntry{}, validationError(
				fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", label, expected.Encoded(), actual.Encoded()),
				nil,
			)
		}
	}

	if err := os.WriteFile(filepath.Join(tmpDir, cacheReadyMarkerFile), []byte(actual.String()+"\n"), 0o600); err != nil {
		return cacheEntry{}, internalError("failed to write engine cache readiness marker", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return cacheEntry{}, internalError("failed to replace existing engine cache entry", err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		return cacheEntry{}, internalError("failed to finalize engine cache entry", err)
	}
	cleanupTmp = false

	return cacheEntry{path: filepath.Join(dir, fileName), digest: actual}, nil
}

func (f *Fetcher) decompressTo(ctx context.Context, stream io.Reader, path string, label string) (digest.Digest, error) {
	gzipReader, err := gzip.NewReader(stream)
	if err != nil {
		return "", validationError(fmt.Sprintf("%s is not a valid gzip stream", label), err)
	}
	defer gzipReader.Close()

	output, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", internalError("failed to create engine cache file", err)
	}

	digester := digest.SHA256.Digester()
	progress := newProgressWriter(debugctx.Logger(ctx), label, f.progressInterval)
	written, copyErr := io.Copy(
		io.MultiWriter(output, digester.Hash(), progress),
		io.LimitReader(gzipReader, maxEngineFileBytes+1),
	)
	closeErr := output.Close()
	if copyErr != nil {
		return "", transportError(fmt.Sprintf("failed to download %s", label), copyErr)
	}
	if closeErr != nil {
		return "", internalError("failed to finalize engine cache file", closeErr)
	}
	if written > maxEngineFileBytes {
		return "", validationError(fmt.Sprintf("%s exceeds the maximum engine size", label), nil)
	}
	progress.finish()

	return digester.Digest(), nil
}

func digestFile(path string) (digest.Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return digest.SHA256.FromReader(file)
}

type progressWriter struct {
	logger    logr.Logger
	label     string
	total     int64
	sometimes *rate.Sometimes
}

func newProgressWriter(logger logr.Logger, label string, interval time.Duration) *progressWriter {
	return &progressWriter{
		logger:    logger,
		label:     label,
		sometimes: &rate.Sometimes{First: 1, Interval: interval},
	}
}

func (p *progressWriter) Write(data []byte) (int, error) {
	p.total += int64(len(data))
	p.sometimes.Do(func() {
		p.logger.V(1).Info("downloading engine", "artifact", p.label, "bytes", p.total)
	})
	return len(data), nil
}

func (p *progressWriter) finish() {
	p.logger.V(1).Info("downloaded engine", "artifact", p.label, "bytes", p.total)
}
