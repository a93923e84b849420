package builder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/snapserv/action-container-builder/pkg/image"
	"github.com/snapserv/action-container-builder/pkg/logging"
)

// Publisher tags the final image for the target repository and pushes it
// under every resolved tag.
type Publisher struct {
	engine Engine
}

// NewPublisher creates a publisher.
func NewPublisher(engine Engine) *Publisher {
	return &Publisher{engine: engine}
}

// Publish applies the tags in order, pushing each one before moving on. The
// first failure aborts the remaining tags and fails the run. Publishing with
// no tags at all is allowed and does nothing.
func (p *Publisher) Publish(ctx context.Context, imageID, repository string, tags []string, auth image.RegistryAuth) error {
	if len(tags) == 0 {
		logging.Logger.Warn("No publish tags resolved, nothing to publish",
			zap.String("repository", repository))
		return nil
	}

	for _, tag := range tags {
		ref := repository + ":" + tag
		logging.Logger.Info("Publishing image", zap.String("image", ref))

		if err := p.engine.TagImage(ctx, imageID, repository, tag); err != nil {
			return fmt.Errorf("failed to tag image %s as %s: %w", imageID, ref, err)
		}
		if err := p.engine.PushImage(ctx, ref, auth); err != nil {
			return fmt.Errorf("failed to push image %s: %w", ref, err)
		}
	}

	return nil
}
