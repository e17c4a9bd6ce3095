// Package fileutil enumerates the raster files of a delivery directory.
package fileutil

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/nsxbet/geoqc/pkg/raster"
	"github.com/nsxbet/geoqc/pkg/types"
)

// Options control discovery.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Patterns are matched against file names, case-insensitively.
	Patterns []string
}

// SplitPatterns parses a comma separated pattern list such as
// "*.tif,*.tiff".
func SplitPatterns(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// FindRasters returns the raster files under root matching the patterns,
// sorted by path, each with its sidecar world file when one exists.
func FindRasters(root string, opts Options) ([]types.RasterFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read input directory %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("input %s is not a directory", root)
	}
	if len(opts.Patterns) == 0 {
		return nil, errors.New("no file pattern given")
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var matches []string
	for _, pattern := range opts.Patterns {
		if strings.Contains(pattern, "/") || !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid file pattern %q", pattern)
		}
		if opts.Recursive {
			pattern = path.Join("**", pattern)
		}
		found, err := doublestar.Glob(fsys, pattern,
			doublestar.WithFilesOnly(),
			doublestar.WithCaseInsensitive(),
			doublestar.WithFailOnIOErrors(),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", root)
		}
		for _, m := range found {
			if !seen[m] {
				seen[m] = true
				matches = append(matches, m)
			}
		}
	}
	sort.Strings(matches)

	files := make([]types.RasterFile, 0, len(matches))
	for _, m := range matches {
		p := filepath.Join(root, filepath.FromSlash(m))
		files = append(files, types.RasterFile{Path: p, WorldFile: raster.FindWorldFile(p)})
	}
	return files, nil
}

// EnsureDir creates the output directory when it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create output directory %s", dir)
	}
	return nil
}
