package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/geoqc/pkg/types"
)

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o600))
	}
}

func paths(files []types.RasterFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestSplitPatterns(t *testing.T) {
	assert.Equal(t, []string{"*.tif", "*.tiff"}, SplitPatterns(" *.tif, ,*.tiff "))
	assert.Empty(t, SplitPatterns(""))
}

func TestFindRasters(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"b.tif", "a.TIF", "a.tfw", "notes.txt", "c.tiff",
		"sheet/d.tif", "sheet/d.tifw", "sheet/deeper/e.tif",
	)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.tif"), 0o755))

	patterns := []string{"*.tif", "*.tiff"}

	tests := []struct {
		name      string
		opts      Options
		want      []string
		worldFile map[string]string
	}{
		{
			name: "top level only",
			opts: Options{Patterns: patterns},
			want: []string{"a.TIF", "b.tif", "c.tiff"},
			worldFile: map[string]string{
				"a.TIF": "a.tfw",
			},
		},
		{
			name: "recursive",
			opts: Options{Recursive: true, Patterns: patterns},
			want: []string{"a.TIF", "b.tif", "c.tiff", "sheet/d.tif", "sheet/deeper/e.tif"},
			worldFile: map[string]string{
				"sheet/d.tif": "sheet/d.tifw",
			},
		},
		{
			name: "overlapping patterns",
			opts: Options{Patterns: []string{"*.tif", "b.*"}},
			want: []string{"a.TIF", "b.tif"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := FindRasters(root, tt.opts)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(root, filepath.FromSlash(w))
			}
			assert.Equal(t, want, paths(files))

			for _, f := range files {
				rel, err := filepath.Rel(root, f.Path)
				require.NoError(t, err)
				wf := ""
				if w, ok := tt.worldFile[filepath.ToSlash(rel)]; ok {
					wf = filepath.Join(root, filepath.FromSlash(w))
				}
				assert.Equal(t, wf, f.WorldFile, rel)
			}
		})
	}
}

func TestFindRasters_Errors(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "file.tif")

	_, err := FindRasters(filepath.Join(root, "missing"), Options{Patterns: []string{"*.tif"}})
	assert.Error(t, err)

	_, err = FindRasters(filepath.Join(root, "file.tif"), Options{Patterns: []string{"*.tif"}})
	assert.ErrorContains(t, err, "not a directory")

	_, err = FindRasters(root, Options{})
	assert.ErrorContains(t, err, "no file pattern")

	_, err = FindRasters(root, Options{Patterns: []string{"[*.tif"}})
	assert.ErrorContains(t, err, "invalid file pattern")
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "run")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
