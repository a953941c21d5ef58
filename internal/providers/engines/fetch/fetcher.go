package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/engines"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultConcurrency      = 4
	defaultProgressInterval = time.Second
	defaultHTTPTimeout      = 10 * time.Minute
)

var (
	_ engines.Downloader = (*Fetcher)(nil)
	_ engines.Verifier   = (*Fetcher)(nil)
	_ engines.Installer  = (*Fetcher)(nil)
)

type Options struct {
	Mirror                string
	CacheDir              string
	IgnoreMissingChecksum bool
	OCIReference          string
	OCIPlainHTTP          bool
	HTTPClient            *http.Client
	Concurrency           int
	Resolver              engines.TargetResolver
	Probe                 VersionProbe
	Now                   func() time.Time
	ProgressInterval      time.Duration
}

// OptionsFromConfig maps the engines section of the configuration.
func OptionsFromConfig(cfg config.Engines, resolver engines.TargetResolver) Options {
	return Options{
		Mirror:                cfg.Mirror,
		CacheDir:              cfg.CacheDir,
		IgnoreMissingChecksum: cfg.IgnoreMissingChecksum,
		OCIReference:          cfg.OCIReference,
		Resolver:              resolver,
	}
}

type Fetcher struct {
	cacheDir              string
	ignoreMissingChecksum bool
	concurrency           int
	source                source
	resolver              engines.TargetResolver
	probe                 VersionProbe
	now                   func() time.Time
	progressInterval      time.Duration
	group                 singleflight.Group
}

func NewFetcher(options Options) (*Fetcher, error) {
	cacheDir, err := expandHome(strings.TrimSpace(options.CacheDir))
	if err != nil {
		return nil, err
	}
	if cacheDir == "" {
		return nil, validationError("engines cache directory is required", nil)
	}
	if options.Resolver == nil {
		return nil, validationError("engines target resolver is required", nil)
	}

	fetcher := &Fetcher{
		cacheDir:              cacheDir,
		ignoreMissingChecksum: options.IgnoreMissingChecksum,
		concurrency:           options.Concurrency,
		resolver:              options.Resolver,
		probe:                 options.Probe,
		now:                   options.Now,
		progressInterval:      options.ProgressInterval,
	}
	if fetcher.concurrency <= 0 {
		fetcher.concurrency = defaultConcurrency
	}
	if fetcher.probe == nil {
		fetcher.probe = execVersionProbe
	}
	if fetcher.now == nil {
		fetcher.now = time.Now
	}
	if fetcher.progressInterval <= 0 {
		fetcher.progressInterval = defaultProgressInterval
	}

	if strings.TrimSpace(options.OCIReference) != "" {
		fetcher.source = newOCISource(options.OCIReference, options.OCIPlainHTTP)
	} else {
		mirror := strings.TrimRight(strings.TrimSpace(options.Mirror), "/")
		if mirror == "" {
			mirror = config.DefaultEnginesMirror
		}
		client := options.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: defaultHTTPTimeout}
		}
		fetcher.source = &httpSource{mirror: mirror, client: client}
	}

	return fetcher, nil
}

func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

type job struct {
	engine engines.EngineType
	target engines.Target
	dir    string
}

func (f *Fetcher) Download(ctx context.Context, request engines.Request) (engines.Result, error) {
	result, err := f.download(ctx, request)
	if err != nil && request.FailSilent {
		debugctx.Logger(ctx).Error(err, "engine download failed")
		debugctx.Printf(ctx, "engine download failed: %v", err)
		return result, nil
	}
	return result, err
}

func (f *Fetcher) download(ctx context.Context, request engines.Request) (engines.Result, error) {
	version, err := resolveVersion(request.Version)
	if err != nil {
		return engines.Result{}, err
	}
	if len(request.Engines) == 0 {
		return engines.Result{}, validationError("no engines requested", nil)
	}

	if request.LockDir != "" {
		lock, held, err := acquireLock(request.LockDir, f.now())
		if err != nil {
			return engines.Result{}, err
		}
		if held {
			debugctx.Printf(ctx, "lock file already exists, skipping the download of the prisma engines")
			return engines.Result{}, nil
		}
		defer lock.release()
	}

	targets := request.Targets
	if len(targets) == 0 {
		targets = []engines.Target{engines.TargetNative}
	}

	hostTarget, err := f.resolver.Detect(ctx)
	if err != nil {
		debugctx.Printf(ctx, "host platform detection failed: %v", err)
		hostTarget = ""
	}

	result := engines.Result{}
	var mu sync.Mutex
	record := func(engine engines.EngineType, target engines.Target, path string) {
		mu.Lock()
		defer mu.Unlock()
		if result[engine] == nil {
			result[engine] = map[engines.Target]string{}
		}
		result[engine][target] = path
	}

	jobs := make([]job, 0, len(request.Engines)*len(targets))
	for _, engine := range sortedEngines(request.Engines) {
		dir := request.Engines[engine]
		customPath, hasCustom, err := customBinary(engine)
		if err != nil {
			return engines.Result{}, err
		}

		for _, requested := range targets {
			if hasCustom {
				record(engine, requested, customPath)
				continue
			}
			if err := engines.ValidateTarget(requested); err != nil {
				return engines.Result{}, err
			}
			target, err := f.resolver.Resolve(ctx, requested)
			if err != nil {
				return engines.Result{}, err
			}
			jobs = append(jobs, job{engine: engine, target: target, dir: dir})
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.concurrency)
	for _, current := range jobs {
		current := current
		group.Go(func() error {
			path, err := f.ensureInstalled(groupCtx, version, current, hostTarget)
			if err != nil {
				return err
			}
			record(current.engine, current.target, path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	return result, nil
}

func (f *Fetcher) ensureInstalled(ctx context.Context, version string, current job, hostTarget engines.Target) (string, error) {
	dir, err := expandHome(current.dir)
	if err != nil {
		return "", err
	}
	targetPath := filepath.Join(dir, engines.BinaryName(current.engine, current.target))

	needed, err := f.needsDownload(ctx, version, current, targetPath, hostTarget)
	if err != nil {
		return "", err
	}
	if !needed {
		debugctx.Printf(ctx, "%s is up to date", targetPath)
		return targetPath, nil
	}

	entry, err := f.ensureCacheEntry(ctx, version, current.engine, current.target)
	if err != nil {
		return "", err
	}

	mode := os.FileMode(0o755)
	if current.engine.IsLibrary() {
		mode = 0o644
	}
	if err := copyFileAtomic(entry.path, targetPath, mode); err != nil {
		return "", err
	}
	return targetPath, nil
}

// needsDownload reports whether targetPath is missing or stale. Executables for
// the host platform are checked with --version; other files are compared with
// the cached digest when one exists.
func (f *Fetcher) needsDownload(
	ctx context.Context,
	version string,
	current job,
	targetPath string,
	hostTarget engines.Target,
) (bool, error) {
	info, err := os.Stat(targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, internalError("failed to inspect installed engine", err)
	}
	if info.IsDir() {
		return false, validationError(fmt.Sprintf("%s is a directory", targetPath), nil)
	}

	if current.target == hostTarget && !current.engine.IsLibrary() {
		ok, err := f.Verify(ctx, targetPath, version)
		if err != nil {
			return false, err
		}
		if !ok {
			debugctx.Printf(ctx, "%s does not report version %s, downloading again", targetPath, version)
		}
		return !ok, nil
	}

	entry, ok := f.lookupCacheEntry(version, current.engine, current.target)
	if !ok {
		return false, nil
	}
	installed, err := digestFile(targetPath)
	if err != nil {
		return false, internalError("failed to hash installed engine", err)
	}
	return installed != entry.digest, nil
}

func resolveVersion(version string) (string, error) {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return config.DefaultEnginesVersion, nil
	}
	if engines.IsCommitHash(trimmed) {
		return trimmed, nil
	}
	if strings.Contains(trimmed, ".") {
		return engines.ResolveHash(trimmed)
	}
	// Branch-like versions such as "latest" are passed through to the mirror.
	if strings.ContainsAny(trimmed, "/\\") {
		return "", validationError(fmt.Sprintf("engines version %q is invalid", trimmed), nil)
	}
	return trimmed, nil
}

func customBinary(engine engines.EngineType) (string, bool, error) {
	envVar := engine.CustomBinaryEnvVar()
	if envVar == "" {
		return "", false, nil
	}
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return "", false, nil
	}

	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", false, validationError(fmt.Sprintf("env var %s is provided but provided path %s can't be resolved", envVar, value), err)
	}
	if _, err := os.Stat(absolute); err != nil {
		return "", false, validationError(fmt.Sprintf("env var %s is provided but provided path %s can't be resolved", envVar, value), nil)
	}
	return absolute, true, nil
}

func sortedEngines(requested map[engines.EngineType]string) []engines.EngineType {
	items := make([]engines.EngineType, 0, len(requested))
	for engine := range requested {
		items = append(items, engine)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

func copyFileAtomic(sourcePath string, targetPath string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return internalError("failed to create engines directory", err)
	}

	input, err := os.Open(sourcePath)
	if err != nil {
		return internalError("failed to open cached engine", err)
	}
	defer input.Close()

	tempFile, err := os.CreateTemp(filepath.Dir(targetPath), "."+filepath.Base(targetPath)+".tmp-")
	if err != nil {
		return internalError("failed to create temporary engine file", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, input); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to copy engine", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to set engine permissions", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to finalize engine", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to install engine", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", internalError("failed to resolve user home directory", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/")), nil
}
