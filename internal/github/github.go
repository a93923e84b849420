// Package github implements the pieces of the GitHub Actions runner protocol
// the builder needs: action inputs, run metadata and step outputs.
package github

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Context carries the run metadata the workflow runner exposes through the
// environment.
type Context struct {
	// SHA is the commit the workflow runs for.
	SHA string
	// Ref is the fully qualified git reference of the triggering event.
	Ref string
	// Repository is the "owner/name" slug.
	Repository string
	// ServerURL is the base URL of the GitHub instance.
	ServerURL string
	// OutputFile is the path step outputs are appended to. Empty on legacy
	// runners, which expect the ::set-output workflow command instead.
	OutputFile string
}

// LoadContext reads the run metadata from the environment.
func LoadContext() Context {
	return Context{
		SHA:        os.Getenv("GITHUB_SHA"),
		Ref:        os.Getenv("GITHUB_REF"),
		Repository: os.Getenv("GITHUB_REPOSITORY"),
		ServerURL:  os.Getenv("GITHUB_SERVER_URL"),
		OutputFile: os.Getenv("GITHUB_OUTPUT"),
	}
}

// SourceURL returns the web URL of the repository the run belongs to, or ""
// when the environment does not provide enough to build one.
func (c Context) SourceURL() string {
	if c.ServerURL == "" || c.Repository == "" {
		return ""
	}
	return c.ServerURL + "/" + c.Repository
}

// Input returns the trimmed value of an action input. The runner exposes
// inputs as INPUT_<NAME> environment variables, uppercased and with spaces
// mapped to underscores.
func Input(name string) string {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	return strings.TrimSpace(os.Getenv(key))
}

// SetOutput publishes a step output. On current runners it appends a
// heredoc-style entry to the output file; the delimiter is randomized so
// values containing arbitrary lines cannot terminate the block early.
func (c Context) SetOutput(name, value string) error {
	if c.OutputFile == "" {
		// Legacy runners only understand the set-output workflow command.
		fmt.Printf("::set-output name=%s::%s\n", name, escapeData(value))
		return nil
	}

	f, err := os.OpenFile(c.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	delimiter := "ghadelimiter_" + uuid.NewString()
	if _, err := fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter); err != nil {
		return fmt.Errorf("failed to write output %q: %w", name, err)
	}
	return nil
}

// escapeData encodes a workflow command payload.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
