package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/mod/module"

	"github.com/acronis/go-pkgdep/pkg/filesys"
)

const (
	artifactsDirName  = "artifacts"
	storeManifestName = "store.json"
)

// Store is the on-disk artifact cache: verified tarballs laid out as
// <dir>/artifacts/<escaped-name>/<version>.tgz. Scoped package names
// are escaped into safe path elements.
//
// Writes are serialized: the store manifest records a hash of the
// whole artifacts directory, so it must never be computed while
// another write is in flight.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get user cache dir: %w", err)
	}
	return filepath.Join(base, "pkgdep"), nil
}

func (s *Store) artifactPath(name, version string) (string, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		// npm names that are not valid module paths still need a
		// deterministic location; fall back to the raw name
		escaped = name
	}
	return filepath.Join(s.dir, artifactsDirName, filepath.FromSlash(escaped), version+".tgz"), nil
}

func (s *Store) Has(name, version string) bool {
	path, err := s.artifactPath(name, version)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) Get(name, version string) ([]byte, error) {
	path, err := s.artifactPath(name, version)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cached artifact %s@%s: %w", name, version, err)
	}
	return data, nil
}

func (s *Store) Put(name, version string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.artifactPath(name, version)
	if err != nil {
		return err
	}
	if err := filesys.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("store artifact %s@%s: %w", name, version, err)
	}

	slog.Debug("Stored artifact",
		slog.String("package", name),
		slog.String("version", version),
	)
	return s.writeManifest()
}

type storeManifest struct {
	Hash string `json:"hash"`
}

func (s *Store) writeManifest() error {
	hash, err := filesys.ComputeDirectoryHash(filepath.Join(s.dir, artifactsDirName))
	if err != nil {
		return fmt.Errorf("compute store hash: %w", err)
	}
	return filesys.WriteJSON(filepath.Join(s.dir, storeManifestName), storeManifest{Hash: hash})
}

// SelfCheck recomputes the artifacts directory hash and compares it
// against the recorded store manifest. A mismatch means the cache was
// modified outside this tool; it is reported, never repaired.
func (s *Store) SelfCheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m storeManifest
	if err := filesys.ReadJSON(filepath.Join(s.dir, storeManifestName), &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read store manifest: %w", err)
	}

	hash, err := filesys.ComputeDirectoryHash(filepath.Join(s.dir, artifactsDirName))
	if err != nil {
		return fmt.Errorf("compute store hash: %w", err)
	}
	if hash != m.Hash {
		return fmt.Errorf("artifact store was modified outside pkgdep: recorded %s, computed %s", m.Hash, hash)
	}
	return nil
}
