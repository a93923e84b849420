// Package prune retires stale cache tags. Most registries the builder runs
// against expose no image-deletion API, so the default strategy overwrites a
// stale tag with a minimal placeholder image that cache enumeration knows to
// skip. Registries with the V2 delete API enabled can opt into true deletion.
package prune

import (
	"context"

	"go.uber.org/zap"

	"github.com/snapserv/action-container-builder/pkg/image"
	"github.com/snapserv/action-container-builder/pkg/logging"
)

// Strategy retires a single cache tag so future cache enumeration no longer
// sees it.
type Strategy interface {
	Retire(ctx context.Context, repository, tag string, auth image.RegistryAuth) error
}

// noDeleteHosts are registries known to reject manifest deletion; they stay
// on the placeholder strategy even when configured for true deletion.
var noDeleteHosts = map[string]bool{
	"docker.io":             true,
	"docker.pkg.github.com": true,
	"ghcr.io":               true,
}

// Retirer dispatches tag retirement to a per-registry strategy, defaulting
// to the placeholder overwrite that works on any registry.
type Retirer struct {
	fallback Strategy
	byHost   map[string]Strategy
}

// NewRetirer creates the retirement dispatcher. deleteHosts lists registry
// hosts whose V2 delete API is enabled and should be used instead of the
// placeholder overwrite.
func NewRetirer(engine Engine, deleteHosts []string) *Retirer {
	r := &Retirer{
		fallback: NewPlaceholderStrategy(engine),
		byHost:   make(map[string]Strategy),
	}

	for _, host := range deleteHosts {
		if noDeleteHosts[host] {
			logging.Logger.Warn("Registry does not support manifest deletion, keeping placeholder strategy",
				zap.String("registry", host))
			continue
		}
		r.byHost[host] = RegistryDeleteStrategy{}
	}

	return r
}

// Retire removes repository:tag from future cache enumeration using the
// strategy registered for the repository's registry host.
func (r *Retirer) Retire(ctx context.Context, repository, tag string, auth image.RegistryAuth) error {
	src := image.Parse(repository)
	if strategy, ok := r.byHost[src.Registry]; ok {
		return strategy.Retire(ctx, repository, tag, auth)
	}
	return r.fallback.Retire(ctx, repository, tag, auth)
}
