package registry

import (
	"context"
	"testing"

	"github.com/snapserv/action-container-builder/pkg/image"
)

// Repository names with uppercase segments are rejected by the reference
// parser before any network access happens.
func TestListRepositoryTagsInvalidReference(t *testing.T) {
	client := NewClient()

	_, err := client.ListRepositoryTags(context.Background(), "example.com/Broken/Repo", image.RegistryAuth{})
	if err == nil {
		t.Error("ListRepositoryTags() expected error for invalid repository reference")
	}
}
