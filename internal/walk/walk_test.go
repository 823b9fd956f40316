package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectoryFindsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "data", "units"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "units", "unit.xml"), []byte("b"), 0o600))

	files, err := Directory(root)
	require.NoError(t, err)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	sort.Strings(paths)

	require.Equal(t, []string{`data\units\unit.xml`, "top.txt"}, paths)
}

func TestDirectoryEmpty(t *testing.T) {
	files, err := Directory(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, files)
}
