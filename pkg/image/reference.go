package image

import (
	"strings"
)

// DefaultRegistry is the registry assumed when an image reference carries
// no registry host of its own.
const DefaultRegistry = "docker.io"

// Source is the decomposed form of an image reference string. It is derived,
// never stored: recompute it from the reference whenever needed.
type Source struct {
	Repository string // reference without the tag, registry included when given
	Registry   string // registry host, DefaultRegistry when none was given
	Image      string // repository path without the registry host
	Tag        string // tag or digest, empty when absent or ambiguous
}

// Parse decomposes an image reference. Malformed input degrades to a
// best-effort interpretation; Parse never fails.
//
// The tag separator is the last "@" (digest form) or otherwise the last ":".
// A separator followed by a "/" is not a tag separator at all but part of a
// registry host ("my.registry:5000/image"), in which case the whole string
// is the repository.
func Parse(name string) Source {
	repository, tag := splitTag(name)
	registry, img := splitRegistry(repository)
	return Source{
		Repository: repository,
		Registry:   registry,
		Image:      img,
		Tag:        tag,
	}
}

// String reconstructs the reference as "repository[:tag]". Digests are
// re-joined with "@" so that parsing the reconstruction yields the same
// fields; a plain tag can never contain ":".
func (s Source) String() string {
	switch {
	case s.Tag == "":
		return s.Repository
	case strings.Contains(s.Tag, ":"):
		return s.Repository + "@" + s.Tag
	default:
		return s.Repository + ":" + s.Tag
	}
}

func splitTag(name string) (repository, tag string) {
	sep := strings.LastIndex(name, "@")
	if sep < 0 {
		sep = strings.LastIndex(name, ":")
	}
	if sep < 0 {
		return name, ""
	}
	tag = name[sep+1:]
	if strings.Contains(tag, "/") {
		// "host:5000/image": the colon belongs to a port, not a tag
		return name, ""
	}
	return name[:sep], tag
}

func splitRegistry(repository string) (registry, img string) {
	i := strings.Index(repository, "/")
	if i < 0 {
		return DefaultRegistry, repository
	}
	host := repository[:i]
	// A leading path segment is only a registry when it looks like a host:
	// contains a dot or port, or is literally "localhost".
	if host != "localhost" && !strings.ContainsAny(host, ".:") {
		return DefaultRegistry, repository
	}
	return host, repository[i+1:]
}
