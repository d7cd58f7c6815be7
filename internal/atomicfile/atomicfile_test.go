package atomicfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParents(t *testing.T) {
	fs := memfs.New()

	require.NoError(t, WriteFile(fs, filepath.Join("places", "sky_ra01", "a.yml"), []byte("id: a\n")))

	got, err := util.ReadFile(fs, filepath.Join("places", "sky_ra01", "a.yml"))
	require.NoError(t, err)
	assert.Equal(t, "id: a\n", string(got))
}

func TestWriteFileReplacesAndLeavesNoTemp(t *testing.T) {
	for name, newFS := range map[string]func(t *testing.T) billy.Filesystem{
		"memfs": func(*testing.T) billy.Filesystem { return memfs.New() },
		"osfs":  func(t *testing.T) billy.Filesystem { return osfs.New(t.TempDir()) },
	} {
		t.Run(name, func(t *testing.T) {
			bfs := newFS(t)
			path := filepath.Join("catfiles", "t1.yml")

			require.NoError(t, WriteFile(bfs, path, []byte("old")))
			require.NoError(t, WriteFile(bfs, path, []byte("new")))

			got, err := util.ReadFile(bfs, path)
			require.NoError(t, err)
			assert.Equal(t, "new", string(got))

			entries, err := bfs.ReadDir("catfiles")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.False(t, strings.HasPrefix(entries[0].Name(), TempPrefix))
		})
	}
}
