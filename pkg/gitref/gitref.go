// Package gitref models the symbolic reference of the CI run's triggering
// event. Only the three reference shapes relevant for publish tagging are
// recognized; everything else is Unknown.
package gitref

import (
	"strings"
)

// Type classifies a git reference.
type Type int

const (
	Unknown Type = iota
	Head
	PullRequest
	Tag
)

func (t Type) String() string {
	switch t {
	case Head:
		return "head"
	case PullRequest:
		return "pull-request"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

// Ref is a parsed git reference. Name holds the branch name, pull request
// number or tag name depending on Type; it is empty for Unknown refs.
type Ref struct {
	Type Type
	Name string
}

// Parse classifies a fully qualified reference string:
//
//	refs/heads/<branch>  -> Head
//	refs/pull/<n>/...    -> PullRequest
//	refs/tags/<tag>      -> Tag
//
// Anything else, including the empty string, yields an Unknown ref.
func Parse(ref string) Ref {
	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		if name := strings.TrimPrefix(ref, "refs/heads/"); name != "" {
			return Ref{Type: Head, Name: name}
		}
	case strings.HasPrefix(ref, "refs/tags/"):
		if name := strings.TrimPrefix(ref, "refs/tags/"); name != "" {
			return Ref{Type: Tag, Name: name}
		}
	case strings.HasPrefix(ref, "refs/pull/"):
		rest := strings.TrimPrefix(ref, "refs/pull/")
		if number, _, ok := strings.Cut(rest, "/"); ok && number != "" {
			return Ref{Type: PullRequest, Name: number}
		}
	}
	return Ref{Type: Unknown}
}
