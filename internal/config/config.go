// Package config resolves the builder's inputs. Values come from defaults,
// an optional YAML file for local runs and the action's INPUT_* environment,
// in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/snapserv/action-container-builder/internal/github"
	"github.com/snapserv/action-container-builder/pkg/image"
)

// Config carries every input of one run.
type Config struct {
	// Build controls whether the stage-cached build runs.
	Build bool `yaml:"build"`
	// Publish controls whether the final image is tagged and pushed to the
	// target repository.
	Publish bool `yaml:"publish"`

	// BuildContext is the build context directory.
	BuildContext string `yaml:"build_context"`
	// BuildDockerfile is the Dockerfile path relative to the build context.
	BuildDockerfile string `yaml:"build_dockerfile"`

	// TargetRepository receives the published image.
	TargetRepository string `yaml:"target_repository" validate:"required"`
	TargetUsername   string `yaml:"target_registry_username" validate:"required"`
	TargetPassword   string `yaml:"target_registry_password" validate:"required"`

	// CacheRepository persists the per-stage cache images. It defaults to
	// the target repository with a "-cache" suffix.
	CacheRepository string `yaml:"cache_repository"`
	// Cache credentials default to the target credentials.
	CacheUsername string `yaml:"cache_registry_username"`
	CachePassword string `yaml:"cache_registry_password"`

	// Tags are the static publish tags.
	Tags []string `yaml:"tags"`
	// TagWithRef derives an extra publish tag from the run's git reference.
	TagWithRef bool `yaml:"tag_with_ref"`
	// TagWithSHA derives an extra publish tag from the run's commit SHA.
	TagWithSHA bool `yaml:"tag_with_sha"`

	// BuildArgs are handed to every stage build.
	BuildArgs map[string]string `yaml:"build_args"`
	// CacheDeleteHosts lists registry hosts whose V2 delete API is enabled,
	// letting stale cache tags be deleted instead of overwritten.
	CacheDeleteHosts []string `yaml:"cache_delete_hosts"`
}

// Load resolves the configuration. path optionally names a YAML file used
// for local runs; action inputs override its values.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Build:           true,
		Publish:         true,
		BuildContext:    ".",
		BuildDockerfile: "Dockerfile",
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadInputs(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TargetAuth returns the target repository's credentials.
func (c *Config) TargetAuth() image.RegistryAuth {
	return image.RegistryAuth{Username: c.TargetUsername, Password: c.TargetPassword}
}

// CacheAuth returns the cache repository's credentials.
func (c *Config) CacheAuth() image.RegistryAuth {
	return image.RegistryAuth{Username: c.CacheUsername, Password: c.CachePassword}
}

// loadFile merges the YAML configuration file at path. Absent keys keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}
	return nil
}

// loadInputs merges the action's INPUT_* environment. Empty inputs keep
// their current values.
func (c *Config) loadInputs() error {
	var err error
	setBool := func(dst *bool, name string) {
		if err != nil {
			return
		}
		value := github.Input(name)
		if value == "" {
			return
		}
		parsed, parseErr := strconv.ParseBool(value)
		if parseErr != nil {
			err = fmt.Errorf("invalid boolean input %s=%q", name, value)
			return
		}
		*dst = parsed
	}
	setString := func(dst *string, name string) {
		if value := github.Input(name); value != "" {
			*dst = value
		}
	}

	setBool(&c.Build, "build")
	setBool(&c.Publish, "publish")
	setString(&c.BuildContext, "build_context")
	setString(&c.BuildDockerfile, "build_dockerfile")
	setString(&c.TargetRepository, "target_repository")
	setString(&c.TargetUsername, "target_registry_username")
	setString(&c.TargetPassword, "target_registry_password")
	setString(&c.CacheRepository, "cache_repository")
	setString(&c.CacheUsername, "cache_registry_username")
	setString(&c.CachePassword, "cache_registry_password")
	setBool(&c.TagWithRef, "tag_with_ref")
	setBool(&c.TagWithSHA, "tag_with_sha")

	if value := github.Input("tags"); value != "" {
		c.Tags = splitList(value)
	}
	if value := github.Input("cache_delete_hosts"); value != "" {
		c.CacheDeleteHosts = splitList(value)
	}
	if value := github.Input("build_args"); value != "" {
		args, parseErr := parseKeyValues(value)
		if parseErr != nil {
			return fmt.Errorf("invalid build_args input: %w", parseErr)
		}
		c.BuildArgs = args
	}

	return err
}

// applyDefaults fills the values derived from other inputs.
func (c *Config) applyDefaults() {
	if c.CacheRepository == "" && c.TargetRepository != "" {
		c.CacheRepository = c.TargetRepository + "-cache"
	}
	if c.CacheUsername == "" && c.CachePassword == "" {
		c.CacheUsername = c.TargetUsername
		c.CachePassword = c.TargetPassword
	}
}

// validate checks the required inputs.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// splitList parses a comma-separated list, trimming entries and dropping
// empty ones.
func splitList(value string) []string {
	var entries []string
	for _, entry := range strings.Split(value, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}

// parseKeyValues parses a comma-separated list of KEY=VALUE pairs.
func parseKeyValues(value string) (map[string]string, error) {
	pairs := make(map[string]string)
	for _, entry := range splitList(value) {
		key, val, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("entry %q is not KEY=VALUE", entry)
		}
		pairs[key] = val
	}
	return pairs, nil
}
