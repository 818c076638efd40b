package filesys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func ReadJSON(fName string, v interface{}) error {
	f, err := os.Open(fName)
	if err != nil {
		return fmt.Errorf("open file for read: %w", err)
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}

// WriteJSON writes v atomically: the content goes to a temporary file
// in the target directory first and is moved into place with a rename.
// A failed write never leaves a truncated file behind.
func WriteJSON(fName string, v interface{}) error {
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

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fName); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", fName, err)
	}
	return nil
}
