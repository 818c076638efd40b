package filesys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// ReplaceWithCopy copies src over dst, removing any previous content
// at dst first.
func ReplaceWithCopy(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		if err = os.RemoveAll(dst); err != nil {
			return fmt.Errorf("remove existing directory: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dst, err)
	}

	if err := os.MkdirAll(dst, os.ModePerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

// WriteFileAtomic writes data through a temp file and rename, the
// same discipline WriteJSON follows.
func WriteFileAtomic(fName string, data []byte) error {
	dir := filepath.Dir(fName)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fName)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fName); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", fName, err)
	}
	return nil
}
