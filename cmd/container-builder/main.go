package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/snapserv/action-container-builder/internal/builder"
	"github.com/snapserv/action-container-builder/internal/config"
	"github.com/snapserv/action-container-builder/internal/engine"
	"github.com/snapserv/action-container-builder/internal/github"
	"github.com/snapserv/action-container-builder/internal/prune"
	"github.com/snapserv/action-container-builder/internal/registry"
	"github.com/snapserv/action-container-builder/pkg/gitref"
	"github.com/snapserv/action-container-builder/pkg/logging"
	"github.com/snapserv/action-container-builder/pkg/tagging"
)

func main() {
	// Parse flags
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional, for local runs)")
	flag.Parse()

	// Local runs keep their inputs in a .env file; the action runner sets
	// them directly.
	_ = godotenv.Load()

	// Initialize structured logging
	if err := logging.InitLogger(logLevel(), logFormat()); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logging.Logger.Info("Configuration loaded",
		zap.Bool("build", cfg.Build),
		zap.Bool("publish", cfg.Publish),
		zap.String("target_repository", cfg.TargetRepository),
		zap.String("cache_repository", cfg.CacheRepository))

	if err := run(context.Background(), cfg, github.LoadContext()); err != nil {
		logging.Logger.Fatal("Run failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, gh github.Context) error {
	if !cfg.Build && !cfg.Publish {
		logging.Logger.Info("Both build and publish are disabled, nothing to do")
		return nil
	}

	client, err := engine.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create engine client: %w", err)
	}

	b := builder.New(client, registry.NewClient(), prune.NewRetirer(client, cfg.CacheDeleteHosts), builder.Options{
		ContextDir:      cfg.BuildContext,
		Dockerfile:      cfg.BuildDockerfile,
		CacheRepository: cfg.CacheRepository,
		CacheAuth:       cfg.CacheAuth(),
		BuildArgs:       buildArgs(cfg.BuildArgs),
		Labels:          provenanceLabels(gh),
	})

	if cfg.Build {
		if err := b.Run(ctx); err != nil {
			return err
		}
		if err := gh.SetOutput("build_output", b.FinalReference()); err != nil {
			logging.Logger.Warn("Failed to publish step output", zap.Error(err))
		}
	} else {
		// Publish-only runs pick up the final image from an earlier build's
		// cache repository.
		b.PullCache(ctx)
	}

	if cfg.Publish {
		imageID, err := b.FinalImage()
		if err != nil {
			return err
		}

		tags := tagging.Resolve(tagging.Options{
			Tags:       cfg.Tags,
			TagWithRef: cfg.TagWithRef,
			TagWithSHA: cfg.TagWithSHA,
		}, gitref.Parse(gh.Ref), gh.SHA)

		if err := builder.NewPublisher(client).Publish(ctx, imageID, cfg.TargetRepository, tags, cfg.TargetAuth()); err != nil {
			return err
		}
	}

	return nil
}

// logLevel resolves the log level. LOG_LEVEL wins; otherwise the runner's
// debug mode enables debug logging.
func logLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	if os.Getenv("RUNNER_DEBUG") == "1" {
		return "debug"
	}
	return "info"
}

func logFormat() string {
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return format
	}
	return "console"
}

// provenanceLabels returns the OCI annotations describing the run that
// produced the image.
func provenanceLabels(gh github.Context) map[string]string {
	labels := make(map[string]string)
	if gh.SHA != "" {
		labels["org.opencontainers.image.revision"] = gh.SHA
	}
	if url := gh.SourceURL(); url != "" {
		labels["org.opencontainers.image.source"] = url
	}
	if ref := gitref.Parse(gh.Ref); ref.Name != "" {
		labels["org.opencontainers.image.ref.name"] = ref.Name
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

// buildArgs converts configured build arguments to the engine's optional
// value form.
func buildArgs(args map[string]string) map[string]*string {
	if len(args) == 0 {
		return nil
	}
	converted := make(map[string]*string, len(args))
	for key, value := range args {
		converted[key] = &value
	}
	return converted
}
