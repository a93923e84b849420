package prune

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/snapserv/action-container-builder/internal/engine"
	"github.com/snapserv/action-container-builder/pkg/image"
	"github.com/snapserv/action-container-builder/pkg/logging"
)

// PlaceholderLabel marks images that only exist to overwrite a retired cache
// tag. Cache enumeration skips any image carrying it.
const PlaceholderLabel = "com.snapserv.container-builder.placeholder"

// placeholderRef is the local-only reference of the placeholder image. It is
// retagged per retired tag and never pushed under its own name.
const placeholderRef = "container-builder/cache-placeholder:latest"

// placeholderDockerfile describes the minimal image used for retirement: an
// empty base carrying nothing but the sentinel label.
const placeholderDockerfile = "FROM scratch\nLABEL " + PlaceholderLabel + "=\"true\"\n"

// Engine is the subset of container engine operations retirement needs.
type Engine interface {
	BuildImage(ctx context.Context, buildContext []byte, opts engine.BuildOptions) (string, error)
	TagImage(ctx context.Context, source, repository, tag string) error
	PushImage(ctx context.Context, ref string, auth image.RegistryAuth) error
}

// PlaceholderStrategy retires a tag on registries without a delete API by
// overwriting it with the placeholder image. The registry keeps listing the
// tag, but its content no longer counts as cached.
//
// The placeholder is built at most once per run and reused for every
// retirement; retiring an already retired tag just overwrites it again.
type PlaceholderStrategy struct {
	engine Engine

	once sync.Once
	ref  string
	err  error
}

// NewPlaceholderStrategy creates the placeholder overwrite strategy.
func NewPlaceholderStrategy(engine Engine) *PlaceholderStrategy {
	return &PlaceholderStrategy{engine: engine}
}

// Retire overwrites repository:tag with the placeholder image and pushes it.
func (s *PlaceholderStrategy) Retire(ctx context.Context, repository, tag string, auth image.RegistryAuth) error {
	if err := s.placeholder(ctx); err != nil {
		return err
	}

	if err := s.engine.TagImage(ctx, s.ref, repository, tag); err != nil {
		return fmt.Errorf("failed to tag placeholder for %s:%s: %w", repository, tag, err)
	}
	if err := s.engine.PushImage(ctx, repository+":"+tag, auth); err != nil {
		return fmt.Errorf("failed to push placeholder for %s:%s: %w", repository, tag, err)
	}

	return nil
}

// placeholder builds the placeholder image on first use and memoizes the
// result, including a build failure, for the rest of the run.
func (s *PlaceholderStrategy) placeholder(ctx context.Context) error {
	s.once.Do(func() {
		logging.Logger.Info("Building placeholder image for cache retirement",
			zap.String("image", placeholderRef))

		buildContext, err := placeholderContext()
		if err != nil {
			s.err = err
			return
		}

		if _, err := s.engine.BuildImage(ctx, buildContext, engine.BuildOptions{
			Tag:        placeholderRef,
			Dockerfile: "Dockerfile",
		}); err != nil {
			s.err = fmt.Errorf("failed to build placeholder image: %w", err)
			return
		}

		s.ref = placeholderRef
	})

	return s.err
}

// placeholderContext packs an in-memory build context holding only the
// placeholder Dockerfile.
func placeholderContext() ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := tw.WriteHeader(&tar.Header{
		Name: "Dockerfile",
		Mode: 0o644,
		Size: int64(len(placeholderDockerfile)),
	})
	if err == nil {
		_, err = tw.Write([]byte(placeholderDockerfile))
	}
	if err == nil {
		err = tw.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pack placeholder build context: %w", err)
	}

	return buf.Bytes(), nil
}
