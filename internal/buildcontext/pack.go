// Package buildcontext packages a build-context directory into the archive
// format the container engine consumes.
package buildcontext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moby/go-archive"
	"github.com/moby/patternmatcher/ignorefile"
)

// IgnoreFile names the exclusion list honored while packing.
const IgnoreFile = ".dockerignore"

// Pack archives the build-context directory as a gzipped tarball, honoring
// the exclusion patterns of a .dockerignore file when one is present. The
// archive is drained into memory so one packing can feed every stage build
// of a run.
func Pack(dir string) ([]byte, error) {
	excludes, err := readIgnoreFile(filepath.Join(dir, IgnoreFile))
	if err != nil {
		return nil, err
	}

	rc, err := archive.TarWithOptions(dir, &archive.TarOptions{
		ExcludePatterns: excludes,
		Compression:     archive.Gzip,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive build context %s: %w", dir, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read build context archive: %w", err)
	}

	return data, nil
}

// readIgnoreFile parses the exclusion patterns of the ignore file at path.
// A missing file yields no patterns.
func readIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	return patterns, nil
}
