package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func Test_PutGet(t *testing.T) {
	s := New(t.TempDir())

	require.False(t, s.Has("lodash", "4.17.21"))
	require.NoError(t, s.Put("lodash", "4.17.21", []byte("tarball")))
	require.True(t, s.Has("lodash", "4.17.21"))

	data, err := s.Get("lodash", "4.17.21")
	require.NoError(t, err)
	require.Equal(t, "tarball", string(data))
}

func Test_ScopedNameEscaped(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Put("@scope/pkg", "1.0.0", []byte("tarball")))
	require.True(t, s.Has("@scope/pkg", "1.0.0"))

	data, err := s.Get("@scope/pkg", "1.0.0")
	require.NoError(t, err)
	require.Equal(t, "tarball", string(data))
}

func Test_SelfCheck(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Put("lodash", "4.17.21", []byte("tarball")))
	require.NoError(t, s.SelfCheck())

	// out-of-band modification is detected, never repaired
	path := filepath.Join(dir, artifactsDirName, "lodash", "4.17.21.tgz")
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0644))
	require.Error(t, s.SelfCheck())
}

func Test_SelfCheck_EmptyStore(t *testing.T) {
	require.NoError(t, New(t.TempDir()).SelfCheck())
}

func Test_Put_ConcurrentWritersKeepManifestConsistent(t *testing.T) {
	s := New(t.TempDir())

	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		version := fmt.Sprintf("1.0.%d", i)
		eg.Go(func() error {
			return s.Put("lodash", version, []byte("tarball "+version))
		})
	}
	require.NoError(t, eg.Wait())

	// the recorded hash must cover every artifact, not just the last
	// writer's view of the directory
	require.NoError(t, s.SelfCheck())
	for i := 0; i < 16; i++ {
		require.True(t, s.Has("lodash", fmt.Sprintf("1.0.%d", i)))
	}
}
