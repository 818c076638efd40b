package filesys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_WriteJSON_ReadJSON(t *testing.T) {
	dir := t.TempDir()
	fName := filepath.Join(dir, "nested", "out.json")

	in := map[string]string{"a": "1", "b": "2"}
	require.NoError(t, WriteJSON(fName, in))

	out := map[string]string{}
	require.NoError(t, ReadJSON(fName, &out))
	require.Equal(t, in, out)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(fName))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func Test_ComputeDirectoryHash(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta"), 0644))

	h1, err := ComputeDirectoryHash(dir)
	require.NoError(t, err)
	require.Contains(t, h1, "xxh3:")

	h2, err := ComputeDirectoryHash(dir)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("gamma"), 0644))
	h3, err := ComputeDirectoryHash(dir)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func Test_HashBytes_Stable(t *testing.T) {
	require.Equal(t, HashBytes([]byte("data")), HashBytes([]byte("data")))
	require.NotEqual(t, HashBytes([]byte("data")), HashBytes([]byte("datb")))
}

func Test_ReplaceWithCopy(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("new"), 0644))

	require.NoError(t, os.MkdirAll(dst, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "stale.txt"), []byte("old"), 0644))

	require.NoError(t, ReplaceWithCopy(src, dst))

	_, err := os.Stat(filepath.Join(dst, "stale.txt"))
	require.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dst, "f.txt"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}
