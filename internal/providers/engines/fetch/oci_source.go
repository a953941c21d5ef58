package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/crmarques/prismafmt/engines"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
)

// ociSource pulls engines from an OCI repository. Each <version>-<target> tag
// is an artifact with one layer per published file, titled with the remote
// file name (prisma-fmt.gz, prisma-fmt.sha256, ...).
type ociSource struct {
	reference  string
	repository func(ctx context.Context) (oras.ReadOnlyTarget, error)
}

func newOCISource(reference string, plainHTTP bool) *ociSource {
	reference = strings.TrimSpace(reference)
	return &ociSource{
		reference: reference,
		repository: func(context.Context) (oras.ReadOnlyTarget, error) {
			repository, err := remote.NewRepository(reference)
			if err != nil {
				return nil, validationError(fmt.Sprintf("engines.oci-reference %q is invalid", reference), err)
			}
			repository.PlainHTTP = plainHTTP
			return repository, nil
		},
	}
}

func ociTag(version string, target engines.Target) string {
	return fmt.Sprintf("%s-%s", version, target)
}

func (s *ociSource) describe(version string, engine engines.EngineType, target engines.Target) string {
	return fmt.Sprintf("%s:%s (%s.gz)", s.reference, ociTag(version, target), engines.RemoteName(engine, target))
}

func (s *ociSource) open(
	ctx context.Context,
	version string,
	engine engines.EngineType,
	target engines.Target,
) (artifact, error) {
	repository, err := s.repository(ctx)
	if err != nil {
		return artifact{}, err
	}

	workDir, err := os.MkdirTemp("", "prisma-fmt-oci-")
	if err != nil {
		return artifact{}, internalError("failed to create OCI pull directory", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(workDir)
		}
	}()

	store, err := file.New(workDir)
	if err != nil {
		return artifact{}, internalError("failed to open OCI file store", err)
	}
	defer store.Close()

	remoteName := engines.RemoteName(engine, target)
	archiveName := remoteName + ".gz"
	checksumName := remoteName + ".sha256"
	wanted := map[string]struct{}{archiveName: {}, checksumName: {}}

	options := oras.DefaultCopyOptions
	options.FindSuccessors = func(
		ctx context.Context,
		fetcher content.Fetcher,
		desc ocispec.Descriptor,
	) ([]ocispec.Descriptor, error) {
		successors, err := content.Successors(ctx, fetcher, desc)
		if err != nil {
			return nil, err
		}
		filtered := successors[:0]
		for _, successor := range successors {
			title := successor.Annotations[ocispec.AnnotationTitle]
			if title == "" {
				filtered = append(filtered, successor)
				continue
			}
			if _, ok := wanted[title]; ok {
				filtered = append(filtered, successor)
			}
		}
		return filtered, nil
	}

	tag := ociTag(version, target)
	if _, err := oras.Copy(ctx, repository, tag, store, tag, options); err != nil {
		return artifact{}, transportError(fmt.Sprintf("failed to pull %s:%s", s.reference, tag), err)
	}

	archive, err := os.Open(filepath.Join(workDir, archiveName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return artifact{}, notFoundError(fmt.Sprintf("OCI artifact %s:%s has no %s layer", s.reference, tag, archiveName), nil)
		}
		return artifact{}, internalError("failed to open pulled engine archive", err)
	}

	checksum := ""
	if data, err := os.ReadFile(filepath.Join(workDir, checksumName)); err == nil {
		checksum = parseChecksum(string(data))
	}

	cleanup = false
	return artifact{body: &removingReadCloser{ReadCloser: archive, dir: workDir}, checksum: checksum}, nil
}

type removingReadCloser struct {
	io.ReadCloser
	dir string
}

func (r *removingReadCloser) Close() error {
	err := r.ReadCloser.Close()
	_ = os.RemoveAll(r.dir)
	return err
}
