// Package tagging computes the set of tags a built image is published under.
package tagging

import (
	"github.com/snapserv/action-container-builder/pkg/gitref"
)

// Options selects which tag sources contribute to the publish list.
type Options struct {
	// Tags are static tags, appended first in the order supplied.
	Tags []string
	// TagWithRef derives an additional tag from the run's git reference.
	TagWithRef bool
	// TagWithSHA derives an additional tag from the run's commit SHA.
	TagWithSHA bool
}

// Resolve computes the ordered publish tag list. Static tags come first,
// then the SHA-derived tag, then the ref-derived tag. Sources that cannot
// contribute (missing SHA, unrecognized ref) are skipped silently: derived
// tags are best-effort enrichment over the static list. Duplicates across
// independent sources are not merged.
func Resolve(opts Options, ref gitref.Ref, sha string) []string {
	var tags []string

	for _, tag := range opts.Tags {
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	if opts.TagWithSHA && len(sha) >= 7 {
		tags = append(tags, "sha-"+sha[:7])
	}

	if opts.TagWithRef {
		if tag := refTag(ref); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

// refTag maps a git reference to a publish tag. Pushes to master publish
// "latest"; other branches and tags publish their name verbatim; pull
// requests publish "pr-<number>".
func refTag(ref gitref.Ref) string {
	switch ref.Type {
	case gitref.Head:
		if ref.Name == "master" {
			return "latest"
		}
		return ref.Name
	case gitref.PullRequest:
		return "pr-" + ref.Name
	case gitref.Tag:
		return ref.Name
	default:
		return ""
	}
}
