package gitref

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want Ref
	}{
		{"branch", "refs/heads/master", Ref{Type: Head, Name: "master"}},
		{"branch with slashes", "refs/heads/feature/login", Ref{Type: Head, Name: "feature/login"}},
		{"pull request merge", "refs/pull/42/merge", Ref{Type: PullRequest, Name: "42"}},
		{"pull request head", "refs/pull/1337/head", Ref{Type: PullRequest, Name: "1337"}},
		{"tag", "refs/tags/v1.2.3", Ref{Type: Tag, Name: "v1.2.3"}},
		{"empty", "", Ref{Type: Unknown}},
		{"bare branch name", "master", Ref{Type: Unknown}},
		{"unrecognized namespace", "refs/notes/commits", Ref{Type: Unknown}},
		{"heads prefix without name", "refs/heads/", Ref{Type: Unknown}},
		{"pull without number segment", "refs/pull/42", Ref{Type: Unknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.ref); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Head, "head"},
		{PullRequest, "pull-request"},
		{Tag, "tag"},
		{Unknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
