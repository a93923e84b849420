// Package registry reads remote repository state directly over the registry
// V2 API, without going through the container engine.
package registry

import (
	"context"
	"fmt"

	"github.com/containers/image/v5/docker"
	"github.com/containers/image/v5/types"

	"github.com/snapserv/action-container-builder/pkg/image"
)

// Client enumerates repository tags.
type Client struct{}

// NewClient creates a registry client.
func NewClient() *Client {
	return &Client{}
}

// ListRepositoryTags returns every tag the registry currently lists for the
// repository. The list includes tags whose content has been overwritten by a
// placeholder image; those are filtered out later, once the images carrying
// them have been inspected.
func (c *Client) ListRepositoryTags(ctx context.Context, repository string, auth image.RegistryAuth) ([]string, error) {
	ref, err := docker.ParseReference("//" + repository)
	if err != nil {
		return nil, fmt.Errorf("failed to parse repository reference %s: %w", repository, err)
	}

	sys := &types.SystemContext{
		DockerInsecureSkipTLSVerify: types.OptionalBoolFalse,
	}
	if !auth.Anonymous() {
		sys.DockerAuthConfig = &types.DockerAuthConfig{
			Username: auth.Username,
			Password: auth.Password,
		}
	}

	tags, err := docker.GetRepositoryTags(ctx, sys, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", repository, err)
	}

	return tags, nil
}
