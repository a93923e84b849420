// Package dockerfile enumerates the named build stages of a Dockerfile.
//
// The scan is purely textual: it does not validate stage uniqueness or that
// referenced base stages exist. The container engine remains the authority on
// Dockerfile correctness; this package only enumerates cache targets.
package dockerfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stages returns the names of all named build stages ("FROM <image> AS
// <name>") in order of appearance. Matching is case-insensitive, tolerates
// leading whitespace and FROM flags, and ignores anything after the stage
// name. Duplicates are preserved.
func Stages(r io.Reader) ([]string, error) {
	var stages []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.EqualFold(fields[0], "FROM") {
			continue
		}
		// fields[1:] is "[--flag...] <image> AS <name> [noise...]"; the
		// earliest possible AS position keeps one token for the image.
		for i := 2; i < len(fields)-1; i++ {
			if strings.EqualFold(fields[i], "AS") {
				stages = append(stages, fields[i+1])
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dockerfile: %w", err)
	}

	return stages, nil
}

// StagesFromFile reads the Dockerfile at path and returns its named stages.
func StagesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dockerfile: %w", err)
	}
	defer f.Close()

	return Stages(f)
}
