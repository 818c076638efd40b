package integrity

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
)

// MismatchError reports a divergence between a computed content hash
// and a declared or pinned one. It is security-relevant and always
// fatal; no caller may repair it silently.
type MismatchError struct {
	Name    string
	Version string
	// Field names the side that disagreed: "manifest" or "lockfile".
	Field string
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s@%s (%s): want %s, got %s",
		e.Name, e.Version, e.Field, e.Want, e.Got)
}

// Compute returns the SRI digest of artifact content.
func Compute(data []byte) string {
	sum := sha512.Sum512(data)
	return "sha512-" + base64.StdEncoding.EncodeToString(sum[:])
}

// Verify checks fetched artifact bytes against the manifest-declared
// integrity and, where present, the lockfile-pinned one.
//
// A manifest/computed mismatch is always fatal. A lockfile/computed
// mismatch is fatal unless the resolution intended to change the
// pattern's version this run, in which case the pin is expected to
// differ. Returns the computed digest for recording.
func Verify(name, version string, data []byte, declared, locked string, versionChanged bool) (string, error) {
	computed := Compute(data)

	if declared != "" && declared != computed {
		return "", &MismatchError{
			Name: name, Version: version,
			Field: "manifest", Want: declared, Got: computed,
		}
	}
	if locked != "" && locked != computed && !versionChanged {
		return "", &MismatchError{
			Name: name, Version: version,
			Field: "lockfile", Want: locked, Got: computed,
		}
	}
	return computed, nil
}
