// Package builder drives the stage-cached image build. A run pulls the cache
// repository's existing stage images, rebuilds every Dockerfile stage with a
// progressively widening cache-source list, pushes the results back and
// retires cache tags no current stage produces anymore.
package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/snapserv/action-container-builder/internal/buildcontext"
	"github.com/snapserv/action-container-builder/internal/engine"
	"github.com/snapserv/action-container-builder/internal/prune"
	"github.com/snapserv/action-container-builder/pkg/dockerfile"
	"github.com/snapserv/action-container-builder/pkg/image"
	"github.com/snapserv/action-container-builder/pkg/logging"
)

// FinalTag is the cache tag of the Dockerfile's implicit last stage.
const FinalTag = "final"

// StageTagPrefix prefixes the cache tag of every named stage.
const StageTagPrefix = "stage-"

// Engine is the container engine contract the builder drives.
type Engine interface {
	PullImage(ctx context.Context, ref string, auth image.RegistryAuth) error
	PushImage(ctx context.Context, ref string, auth image.RegistryAuth) error
	BuildImage(ctx context.Context, buildContext []byte, opts engine.BuildOptions) (string, error)
	TagImage(ctx context.Context, source, repository, tag string) error
	ListImagesByReference(ctx context.Context, ref string) ([]engine.Summary, error)
}

// TagLister enumerates the tags a remote repository currently serves.
type TagLister interface {
	ListRepositoryTags(ctx context.Context, repository string, auth image.RegistryAuth) ([]string, error)
}

// Retirer makes a stale cache tag invisible to future cache lookups.
type Retirer interface {
	Retire(ctx context.Context, repository, tag string, auth image.RegistryAuth) error
}

// Options configure one build run.
type Options struct {
	// ContextDir is the build context directory.
	ContextDir string
	// Dockerfile is the Dockerfile path relative to ContextDir.
	Dockerfile string
	// CacheRepository holds the per-stage cache images.
	CacheRepository string
	// CacheAuth are the cache repository's credentials.
	CacheAuth image.RegistryAuth
	// BuildArgs are passed to every stage build.
	BuildArgs map[string]*string
	// Labels are applied to the final image only.
	Labels map[string]string
}

// Builder owns the cache state of a single run. It is not safe for
// concurrent use; the phases run strictly in sequence and every engine call
// finishes before the next one starts.
type Builder struct {
	engine  Engine
	tags    TagLister
	retirer Retirer
	opts    Options

	// cached maps cache tag to image ID for images found during the pull
	// phase, placeholders excluded. cachedOrder keeps the enumeration order.
	cached      map[string]string
	cachedOrder []string

	// built maps repository:tag to the image ID built this run. builtOrder
	// keeps the build order.
	built      map[string]string
	builtOrder []string

	// cacheSources accumulates the cache-from references handed to each
	// build: first the pulled cache images, then every freshly built stage.
	cacheSources []string
}

// New creates a builder for one run.
func New(engine Engine, tags TagLister, retirer Retirer, opts Options) *Builder {
	return &Builder{
		engine:  engine,
		tags:    tags,
		retirer: retirer,
		opts:    opts,
		cached:  make(map[string]string),
		built:   make(map[string]string),
	}
}

// Run executes the full cache lifecycle: pull, build, push, prune.
func (b *Builder) Run(ctx context.Context) error {
	b.PullCache(ctx)

	if err := b.BuildStages(ctx); err != nil {
		return err
	}
	if err := b.PushCache(ctx); err != nil {
		return err
	}
	return b.PruneCache(ctx)
}

// PullCache populates the run's view of the remote cache: it pulls every tag
// the cache repository lists and records which tag holds which image,
// skipping placeholder-labeled images left behind by earlier retirements.
//
// Every failure in this phase is absorbed. A cache that cannot be read is an
// empty cache, and the run continues as a cold build.
func (b *Builder) PullCache(ctx context.Context) {
	logging.Logger.Info("Pulling cache images",
		zap.String("repository", b.opts.CacheRepository))

	tags, err := b.tags.ListRepositoryTags(ctx, b.opts.CacheRepository, b.opts.CacheAuth)
	if err != nil {
		logging.Logger.Warn("Failed to list cache repository tags, starting with a cold cache",
			zap.String("repository", b.opts.CacheRepository),
			zap.Error(err))
		return
	}

	for _, tag := range tags {
		ref := b.opts.CacheRepository + ":" + tag
		if err := b.engine.PullImage(ctx, ref, b.opts.CacheAuth); err != nil {
			logging.Logger.Warn("Failed to pull cache image, skipping tag",
				zap.String("image", ref),
				zap.Error(err))
		}
	}

	images, err := b.engine.ListImagesByReference(ctx, b.opts.CacheRepository)
	if err != nil {
		logging.Logger.Warn("Failed to inspect pulled cache images, starting with a cold cache",
			zap.String("repository", b.opts.CacheRepository),
			zap.Error(err))
		return
	}

	cacheSource := image.Parse(b.opts.CacheRepository)
	for _, img := range images {
		if img.Labels[prune.PlaceholderLabel] != "" {
			continue
		}
		for _, repoTag := range img.RepoTags {
			src := image.Parse(repoTag)
			if src.Registry != cacheSource.Registry || src.Image != cacheSource.Image || src.Tag == "" {
				continue
			}
			if _, ok := b.cached[src.Tag]; ok {
				continue
			}
			b.cached[src.Tag] = img.ID
			b.cachedOrder = append(b.cachedOrder, src.Tag)
			b.cacheSources = append(b.cacheSources, repoTag)
		}
	}

	logging.Logger.Info("Cache images pulled",
		zap.String("repository", b.opts.CacheRepository),
		zap.Int("count", len(b.cached)))
}

// BuildStages packs the build context once, then builds every named
// Dockerfile stage in order and finally the implicit last stage. Each build
// feeds the accumulated cache-source list, so later stages reuse the layers
// of earlier ones even when the remote cache was cold.
func (b *Builder) BuildStages(ctx context.Context) error {
	logging.Logger.Info("Packing build context",
		zap.String("directory", b.opts.ContextDir))

	buildContext, err := buildcontext.Pack(b.opts.ContextDir)
	if err != nil {
		return err
	}

	stages, err := dockerfile.StagesFromFile(filepath.Join(b.opts.ContextDir, b.opts.Dockerfile))
	if err != nil {
		return err
	}

	logging.Logger.Info("Building stages",
		zap.String("dockerfile", b.opts.Dockerfile),
		zap.Strings("stages", stages))

	for _, stage := range stages {
		if err := b.buildStage(ctx, buildContext, StageTagPrefix+stage, stage, nil); err != nil {
			return err
		}
	}

	// The implicit last stage is the run's actual product and carries the
	// provenance labels.
	return b.buildStage(ctx, buildContext, FinalTag, "", b.opts.Labels)
}

// buildStage builds one cache image and folds its reference into the
// cache-source list for the stages after it.
func (b *Builder) buildStage(ctx context.Context, buildContext []byte, tag, target string, labels map[string]string) error {
	ref := b.opts.CacheRepository + ":" + tag

	logging.Logger.Info("Building image",
		zap.String("image", ref),
		zap.String("target", target),
		zap.Int("cache_sources", len(b.cacheSources)))

	id, err := b.engine.BuildImage(ctx, buildContext, engine.BuildOptions{
		Tag:        ref,
		Dockerfile: b.opts.Dockerfile,
		Target:     target,
		CacheFrom:  b.cacheSources,
		BuildArgs:  b.opts.BuildArgs,
		Labels:     labels,
		Auths:      b.buildAuths(),
	})
	if err != nil {
		return fmt.Errorf("failed to build stage image %s: %w", ref, err)
	}

	b.built[ref] = id
	b.builtOrder = append(b.builtOrder, ref)
	b.addCacheSource(ref)

	return nil
}

// buildAuths hands the cache repository's credentials to the engine so stage
// builds can resolve base images living in the same registry.
func (b *Builder) buildAuths() map[string]image.RegistryAuth {
	if b.opts.CacheAuth.Anonymous() {
		return nil
	}
	return map[string]image.RegistryAuth{
		image.Parse(b.opts.CacheRepository).Registry: b.opts.CacheAuth,
	}
}

// addCacheSource appends ref unless the list already contains it.
func (b *Builder) addCacheSource(ref string) {
	for _, existing := range b.cacheSources {
		if existing == ref {
			return
		}
	}
	b.cacheSources = append(b.cacheSources, ref)
}

// PushCache pushes every image built this run to the cache repository,
// populating the remote cache for the next run. The pushed set is exactly
// the built set.
func (b *Builder) PushCache(ctx context.Context) error {
	logging.Logger.Info("Pushing cache images",
		zap.String("repository", b.opts.CacheRepository),
		zap.Int("count", len(b.builtOrder)))

	for _, ref := range b.builtOrder {
		logging.Logger.Info("Pushing image", zap.String("image", ref))
		if err := b.engine.PushImage(ctx, ref, b.opts.CacheAuth); err != nil {
			return fmt.Errorf("failed to push cache image %s: %w", ref, err)
		}
	}

	return nil
}

// PruneCache retires every cache tag found during the pull phase that the
// current build did not produce. Such tags belong to stages that were
// renamed or removed.
func (b *Builder) PruneCache(ctx context.Context) error {
	stale := b.staleTags()

	logging.Logger.Info("Pruning stale cache tags",
		zap.String("repository", b.opts.CacheRepository),
		zap.Int("count", len(stale)))

	for _, tag := range stale {
		logging.Logger.Info("Retiring cache tag",
			zap.String("repository", b.opts.CacheRepository),
			zap.String("tag", tag))
		if err := b.retirer.Retire(ctx, b.opts.CacheRepository, tag, b.opts.CacheAuth); err != nil {
			return fmt.Errorf("failed to retire cache tag %s: %w", tag, err)
		}
	}

	return nil
}

// staleTags returns the pulled cache tags absent from the built set, in pull
// order.
func (b *Builder) staleTags() []string {
	var stale []string
	for _, tag := range b.cachedOrder {
		if _, ok := b.built[b.opts.CacheRepository+":"+tag]; !ok {
			stale = append(stale, tag)
		}
	}
	return stale
}

// FinalImage returns the identifier of the run's final image, preferring the
// image built this run over one pulled from the cache. Neither existing
// means there is nothing to publish, which is fatal for the run.
func (b *Builder) FinalImage() (string, error) {
	if id, ok := b.built[b.FinalReference()]; ok {
		return id, nil
	}
	if id, ok := b.cached[FinalTag]; ok {
		return id, nil
	}
	return "", fmt.Errorf("no final image found for %s", b.FinalReference())
}

// FinalReference returns the cache reference of the final image.
func (b *Builder) FinalReference() string {
	return b.opts.CacheRepository + ":" + FinalTag
}
