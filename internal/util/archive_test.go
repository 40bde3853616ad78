package util

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamZipFromDirectorySkipsEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "trip", ".thumbs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".a.meta.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "trip", "b.jpg"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "trip", ".thumbs", "b.jpg"), []byte("t"), 0o644))

	var buf bytes.Buffer
	err := StreamZipFromDirectory(root, &buf, func(name string, _ fs.DirEntry) bool {
		return strings.HasPrefix(name, ".")
	})
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)

	require.Equal(t, []string{"a.png", "trip/", "trip/b.jpg"}, names)
}
