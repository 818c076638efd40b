package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_FromDirectory(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := FromDirectory(t.TempDir())
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("partial file keeps defaults for unset fields", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName),
			[]byte("registry: https://registry.example.test\n"), 0644))

		cfg, err := FromDirectory(dir)
		require.NoError(t, err)
		require.Equal(t, "https://registry.example.test", cfg.Registry)
		require.Equal(t, Default().Concurrency, cfg.Concurrency)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("\t:bad"), 0644))
		_, err := FromDirectory(dir)
		require.Error(t, err)
	})
}
