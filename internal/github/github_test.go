package github

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContext(t *testing.T) {
	t.Setenv("GITHUB_SHA", "0123456789abcdef0123456789abcdef01234567")
	t.Setenv("GITHUB_REF", "refs/heads/master")
	t.Setenv("GITHUB_REPOSITORY", "acme/app")
	t.Setenv("GITHUB_SERVER_URL", "https://github.com")
	t.Setenv("GITHUB_OUTPUT", "/tmp/output")

	ctx := LoadContext()
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", ctx.SHA)
	assert.Equal(t, "refs/heads/master", ctx.Ref)
	assert.Equal(t, "acme/app", ctx.Repository)
	assert.Equal(t, "https://github.com", ctx.ServerURL)
	assert.Equal(t, "/tmp/output", ctx.OutputFile)
}

func TestSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		context Context
		want    string
	}{
		{
			name:    "complete",
			context: Context{ServerURL: "https://github.com", Repository: "acme/app"},
			want:    "https://github.com/acme/app",
		},
		{
			name:    "missing server",
			context: Context{Repository: "acme/app"},
			want:    "",
		},
		{
			name:    "missing repository",
			context: Context{ServerURL: "https://github.com"},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.context.SourceURL())
		})
	}
}

func TestInput(t *testing.T) {
	t.Setenv("INPUT_TARGET_REPOSITORY", "  ghcr.io/acme/app  ")
	t.Setenv("INPUT_CACHE_DELETE_HOSTS", "registry.example.com")

	assert.Equal(t, "ghcr.io/acme/app", Input("target_repository"))
	assert.Equal(t, "registry.example.com", Input("cache_delete_hosts"))
	assert.Equal(t, "registry.example.com", Input("cache delete hosts"))
	assert.Equal(t, "", Input("absent"))
}

func TestSetOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	ctx := Context{OutputFile: path}

	require.NoError(t, ctx.SetOutput("build_output", "ghcr.io/acme/app@sha256:abc"))
	require.NoError(t, ctx.SetOutput("digest", "line one\nline two"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 8, "two heredoc blocks plus trailing newline")

	name, delimiter, ok := strings.Cut(lines[0], "<<")
	require.True(t, ok)
	assert.Equal(t, "build_output", name)
	assert.Regexp(t, `^ghadelimiter_\S+$`, delimiter)
	assert.Equal(t, "ghcr.io/acme/app@sha256:abc", lines[1])
	assert.Equal(t, delimiter, lines[2], "block must close with its own delimiter")

	name, delimiter, ok = strings.Cut(lines[3], "<<")
	require.True(t, ok)
	assert.Equal(t, "digest", name)
	assert.Equal(t, "line one", lines[4])
	assert.Equal(t, "line two", lines[5])
	assert.Equal(t, delimiter, lines[6])
	assert.Equal(t, "", lines[7])
}

func TestSetOutputDelimiterIsRandomized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	ctx := Context{OutputFile: path}

	require.NoError(t, ctx.SetOutput("first", "a"))
	require.NoError(t, ctx.SetOutput("second", "b"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	delimiters := regexp.MustCompile(`ghadelimiter_[0-9a-f-]+`).FindAllString(string(data), -1)
	require.Len(t, delimiters, 4)
	assert.Equal(t, delimiters[0], delimiters[1])
	assert.Equal(t, delimiters[2], delimiters[3])
	assert.NotEqual(t, delimiters[0], delimiters[2])
}

func TestEscapeData(t *testing.T) {
	assert.Equal(t, "a%25b%0Dc%0Ad", escapeData("a%b\rc\nd"))
}
