package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-pkgdep/pkg/pattern"
)

func Test_FromDirectory_Missing(t *testing.T) {
	lock, err := FromDirectory(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 0, lock.Len())
	require.Equal(t, LockfileVersion, lock.Version)
}

func Test_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	lock := New()
	lock.ManifestHash = "xxh3:abc"
	lock.SetLocked(pattern.MustParse("minimatch@^3.0.0"), Entry{
		Version:   "3.0.0",
		Resolved:  "https://registry.npmjs.org/minimatch/-/minimatch-3.0.0.tgz",
		Integrity: "sha512-min",
		Requires:  map[string]string{"brace-expansion": "^1.0.0"},
	})
	lock.SetLocked(pattern.MustParse("concat-map@0.0.1"), Entry{
		Version: "0.0.1", Integrity: "sha512-cm",
	})
	require.NoError(t, lock.Save(dir))

	loaded, err := FromDirectory(dir)
	require.NoError(t, err)
	require.Equal(t, lock.ManifestHash, loaded.ManifestHash)
	require.Equal(t, lock.Patterns(), loaded.Patterns())
	for _, key := range lock.Patterns() {
		p := pattern.MustParse(key)
		want, _ := lock.GetLocked(p)
		got, ok := loaded.GetLocked(p)
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	// save(load(x)) is byte-identical
	first, err := os.ReadFile(filepath.Join(dir, LockfileName))
	require.NoError(t, err)
	require.NoError(t, loaded.Save(dir))
	second, err := os.ReadFile(filepath.Join(dir, LockfileName))
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func Test_Parse_KeyOrderIndependent(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	a := `{"version":"v1","packages":{"a@^1.0.0":{"version":"1.0.0"},"b@^2.0.0":{"version":"2.1.0"}}}`
	b := `{"version":"v1","packages":{"b@^2.0.0":{"version":"2.1.0"},"a@^1.0.0":{"version":"1.0.0"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dirA, LockfileName), []byte(a), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, LockfileName), []byte(b), 0644))

	lockA, err := FromDirectory(dirA)
	require.NoError(t, err)
	lockB, err := FromDirectory(dirB)
	require.NoError(t, err)
	require.Equal(t, lockA.Patterns(), lockB.Patterns())
}

func Test_Parse_Corrupt(t *testing.T) {
	testcases := map[string]string{
		"not json":         `{pkgdep`,
		"missing version":  `{"packages":{}}`,
		"bad entry":        `{"version":"v1","packages":{"a@1.0.0":{"resolved":"x"}}}`,
		"non-string range": `{"version":"v1","packages":{"a@1.0.0":{"version":"1.0.0","requires":{"b":2}}}}`,
	}

	for tcName, content := range testcases {
		t.Run(tcName, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, LockfileName), []byte(content), 0644))
			_, err := FromDirectory(dir)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func Test_Valid(t *testing.T) {
	require.True(t, Valid(pattern.MustParse("a@^1.0.0"), Entry{Version: "1.2.3"}))
	require.True(t, Valid(pattern.MustParse("a"), Entry{Version: "9.9.9"}))
	require.True(t, Valid(pattern.MustParse("a@0.0.1"), Entry{Version: "0.0.1"}))

	// hand-edited manifest moved the range past the pin
	require.False(t, Valid(pattern.MustParse("a@^2.0.0"), Entry{Version: "1.2.3"}))
	require.False(t, Valid(pattern.MustParse("a@~1.2.0"), Entry{Version: "1.3.0"}))
	require.False(t, Valid(pattern.MustParse("a@^1.0.0"), Entry{Version: "not-a-version"}))
}

func Test_RemovePattern(t *testing.T) {
	lock := New()
	p := pattern.MustParse("lodash@^4.0.0")
	lock.SetLocked(p, Entry{Version: "4.17.21"})
	require.Equal(t, 1, lock.Len())

	lock.RemovePattern(p)
	require.Equal(t, 0, lock.Len())
	_, ok := lock.GetLocked(p)
	require.False(t, ok)
}
