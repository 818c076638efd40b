package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/acronis/go-pkgdep/pkg/filesys"
)

const RootManifestFileName = "package.json"

// RootManifest is the requesting project's own manifest. It acts as
// the synthetic root of the resolution tree and as the audit
// payload's top-level identity.
type RootManifest struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Requires map[string]string `json:"dependencies,omitempty"`

	baseDir string
	// extra preserves fields this tool does not own (scripts,
	// license, ...), so a save never strips them.
	extra map[string]json.RawMessage
}

func ReadRoot(baseDir string) (*RootManifest, error) {
	fName := filepath.Join(baseDir, RootManifestFileName)
	data, err := os.ReadFile(fName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fName, err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fName, err)
	}

	rm := &RootManifest{
		Requires: map[string]string{},
		baseDir:  baseDir,
		extra:    map[string]json.RawMessage{},
	}
	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &rm.Name); err != nil {
				return nil, fmt.Errorf("decode name: %w", err)
			}
		case "version":
			if err := json.Unmarshal(val, &rm.Version); err != nil {
				return nil, fmt.Errorf("decode version: %w", err)
			}
		case "dependencies":
			if err := json.Unmarshal(val, &rm.Requires); err != nil {
				return nil, fmt.Errorf("decode dependencies: %w", err)
			}
		default:
			rm.extra[key] = val
		}
	}
	if rm.Name == "" {
		return nil, fmt.Errorf("%s: missing package name", fName)
	}
	return rm, nil
}

func (rm *RootManifest) BaseDir() string {
	return rm.baseDir
}

func (rm *RootManifest) Save() error {
	out := map[string]json.RawMessage{}
	for key, val := range rm.extra {
		out[key] = val
	}
	put := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		out[key] = data
		return nil
	}
	if err := put("name", rm.Name); err != nil {
		return err
	}
	if rm.Version != "" {
		if err := put("version", rm.Version); err != nil {
			return err
		}
	}
	if len(rm.Requires) > 0 {
		if err := put("dependencies", rm.Requires); err != nil {
			return err
		}
	}

	return filesys.WriteJSON(filepath.Join(rm.baseDir, RootManifestFileName), out)
}

// RequiresHash digests the declared dependencies in canonical order.
// The lockfile records it so a later run can tell whether the root
// manifest drifted since the lock was written.
func (rm *RootManifest) RequiresHash() string {
	names := make([]string, 0, len(rm.Requires))
	for name := range rm.Requires {
		names = append(names, name)
	}
	sort.Strings(names)

	canonical := ""
	for _, name := range names {
		canonical += name + "@" + rm.Requires[name] + "\n"
	}
	return filesys.HashBytes([]byte(canonical))
}
