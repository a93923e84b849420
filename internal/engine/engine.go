// Package engine exposes the container engine operations the builder needs:
// pull, push, build, tag and local image listing. It wraps the Docker Engine
// API and streams engine progress to stdout the way the docker CLI does.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/filters"
	imagetypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/snapserv/action-container-builder/pkg/image"
)

// Summary describes one image known to the local engine.
type Summary struct {
	ID       string
	RepoTags []string
	Labels   map[string]string
}

// BuildOptions control a single image build.
type BuildOptions struct {
	// Tag is the repository:tag applied to the built image.
	Tag string
	// Dockerfile is the path of the Dockerfile inside the build context.
	Dockerfile string
	// Target names the build stage to stop at; empty builds the final stage.
	Target string
	// CacheFrom lists image references whose layers the engine may reuse.
	CacheFrom []string
	// BuildArgs are passed through to the Dockerfile's ARG instructions.
	BuildArgs map[string]*string
	// Labels are applied to the built image.
	Labels map[string]string
	// Auths supplies per-registry credentials for base image pulls, keyed by
	// registry host.
	Auths map[string]image.RegistryAuth
}

// Client talks to the container engine the environment points at.
type Client struct {
	api      client.APIClient
	progress io.Writer
}

// NewClient connects to the engine using the standard DOCKER_* environment
// variables, negotiating the API version with the daemon.
func NewClient() (*Client, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create container engine client: %w", err)
	}

	return &Client{api: api, progress: os.Stdout}, nil
}

// PullImage pulls ref from its registry.
func (c *Client) PullImage(ctx context.Context, ref string, auth image.RegistryAuth) error {
	encoded, err := encodeAuth(auth)
	if err != nil {
		return err
	}

	rc, err := c.api.ImagePull(ctx, ref, imagetypes.PullOptions{RegistryAuth: encoded})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer rc.Close()

	if err := c.displayProgress(rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// PushImage pushes ref to its registry.
func (c *Client) PushImage(ctx context.Context, ref string, auth image.RegistryAuth) error {
	encoded, err := encodeAuth(auth)
	if err != nil {
		return err
	}

	rc, err := c.api.ImagePush(ctx, ref, imagetypes.PushOptions{RegistryAuth: encoded})
	if err != nil {
		return fmt.Errorf("failed to push image %s: %w", ref, err)
	}
	defer rc.Close()

	if err := c.displayProgress(rc); err != nil {
		return fmt.Errorf("failed to push image %s: %w", ref, err)
	}
	return nil
}

// BuildImage builds one image from the packed build context and returns the
// identifier the engine assigned to it.
func (c *Client) BuildImage(ctx context.Context, buildContext []byte, opts BuildOptions) (string, error) {
	resp, err := c.api.ImageBuild(ctx, bytes.NewReader(buildContext), build.ImageBuildOptions{
		Tags:        []string{opts.Tag},
		Dockerfile:  opts.Dockerfile,
		Target:      opts.Target,
		CacheFrom:   opts.CacheFrom,
		BuildArgs:   opts.BuildArgs,
		Labels:      opts.Labels,
		AuthConfigs: authConfigs(opts.Auths),
		Remove:      true,
		Version:     build.BuilderV1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image %s: %w", opts.Tag, err)
	}
	defer resp.Body.Close()

	if err := c.displayProgress(resp.Body); err != nil {
		return "", fmt.Errorf("failed to build image %s: %w", opts.Tag, err)
	}

	inspect, err := c.api.ImageInspect(ctx, opts.Tag)
	if err != nil {
		return "", fmt.Errorf("failed to inspect built image %s: %w", opts.Tag, err)
	}

	return inspect.ID, nil
}

// TagImage applies repository:tag to the image identified by source, which
// may be an image ID or an existing reference.
func (c *Client) TagImage(ctx context.Context, source, repository, tag string) error {
	target := repository + ":" + tag
	if err := c.api.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag image %s as %s: %w", source, target, err)
	}
	return nil
}

// ListImagesByReference returns every local image matching the repository or
// repository:tag reference pattern.
func (c *Client) ListImagesByReference(ctx context.Context, ref string) ([]Summary, error) {
	images, err := c.api.ImageList(ctx, imagetypes.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images matching %s: %w", ref, err)
	}

	summaries := make([]Summary, 0, len(images))
	for _, img := range images {
		summaries = append(summaries, Summary{
			ID:       img.ID,
			RepoTags: img.RepoTags,
			Labels:   img.Labels,
		})
	}

	return summaries, nil
}

// displayProgress renders an engine JSON message stream to the progress
// writer. Errors embedded in the stream, like a failed build instruction or
// a denied push, surface as the returned error.
func (c *Client) displayProgress(rc io.Reader) error {
	return jsonmessage.DisplayJSONMessagesStream(rc, c.progress, 0, false, nil)
}

// encodeAuth converts repository credentials into the base64 JSON form the
// engine expects in the X-Registry-Auth header. Anonymous credentials encode
// to an empty header.
func encodeAuth(auth image.RegistryAuth) (string, error) {
	if auth.Anonymous() {
		return "", nil
	}

	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username: auth.Username,
		Password: auth.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode registry credentials: %w", err)
	}
	return encoded, nil
}

// authConfigs maps per-registry credentials into the engine's build auth
// format.
func authConfigs(auths map[string]image.RegistryAuth) map[string]registry.AuthConfig {
	if len(auths) == 0 {
		return nil
	}

	configs := make(map[string]registry.AuthConfig, len(auths))
	for host, auth := range auths {
		configs[host] = registry.AuthConfig{
			Username:      auth.Username,
			Password:      auth.Password,
			ServerAddress: host,
		}
	}
	return configs
}
