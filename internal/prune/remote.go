package prune

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/snapserv/action-container-builder/pkg/image"
)

// RegistryDeleteStrategy retires a tag through the registry's V2 delete API.
// The tag is resolved to its manifest digest first, since registries delete
// manifests by digest rather than by tag.
type RegistryDeleteStrategy struct{}

// Retire deletes the manifest behind repository:tag from the registry.
func (RegistryDeleteStrategy) Retire(ctx context.Context, repository, tag string, auth image.RegistryAuth) error {
	ref, err := name.NewTag(repository + ":" + tag)
	if err != nil {
		return fmt.Errorf("failed to parse reference %s:%s: %w", repository, tag, err)
	}

	opts := []remote.Option{remote.WithContext(ctx)}
	if !auth.Anonymous() {
		opts = append(opts, remote.WithAuth(&authn.Basic{
			Username: auth.Username,
			Password: auth.Password,
		}))
	}

	desc, err := remote.Head(ref, opts...)
	if err != nil {
		return fmt.Errorf("failed to resolve digest of %s: %w", ref.Name(), err)
	}

	digest := ref.Context().Digest(desc.Digest.String())
	if err := remote.Delete(digest, opts...); err != nil {
		return fmt.Errorf("failed to delete %s: %w", digest.Name(), err)
	}

	return nil
}
