package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/acronis/go-pkgdep/pkg/filesys"
	"github.com/acronis/go-pkgdep/pkg/pattern"
)

const (
	LockfileName    = "pkgdep-lock.json"
	LockfileVersion = "v1"
)

// Entry pins one pattern to an exact resolved version.
type Entry struct {
	Version   string            `json:"version"`
	Resolved  string            `json:"resolved,omitempty"`
	Integrity string            `json:"integrity,omitempty"`
	Requires  map[string]string `json:"requires,omitempty"`
}

// ParseError reports corrupt persisted lockfile state. The user must
// regenerate the lockfile; it is never repaired in place.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse lockfile %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Lockfile is the durable snapshot of a previous resolution:
// pattern -> {version, resolved URL, integrity, requires}. It is read
// once per run, mutated in memory, and written back atomically.
type Lockfile struct {
	Version string
	// ManifestHash digests the root manifest's declared dependencies
	// at the time the lock was written; a later run compares it to
	// detect drift.
	ManifestHash string

	packages *orderedmap.OrderedMap[string, Entry]
}

func New() *Lockfile {
	return &Lockfile{
		Version:  LockfileVersion,
		packages: orderedmap.New[string, Entry](),
	}
}

var lockfileSchema = mustCompileSchema(`{
	"type": "object",
	"required": ["version", "packages"],
	"properties": {
		"version": {"type": "string"},
		"manifestHash": {"type": "string"},
		"packages": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["version"],
				"properties": {
					"version": {"type": "string"},
					"resolved": {"type": "string"},
					"integrity": {"type": "string"},
					"requires": {
						"type": "object",
						"additionalProperties": {"type": "string"}
					}
				}
			}
		}
	}
}`)

func mustCompileSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Errorf("compile schema: %w", err))
	}
	return s
}

type lockfileJSON struct {
	Version      string           `json:"version"`
	ManifestHash string           `json:"manifestHash,omitempty"`
	Packages     map[string]Entry `json:"packages"`
}

// FromDirectory loads the lockfile from dir. A missing file yields an
// empty lockfile, not an error.
func FromDirectory(dir string) (*Lockfile, error) {
	fName := filepath.Join(dir, LockfileName)
	data, err := os.ReadFile(fName)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, &ParseError{Path: fName, Err: err}
	}
	return parse(fName, data)
}

func parse(fName string, data []byte) (*Lockfile, error) {
	res, err := lockfileSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &ParseError{Path: fName, Err: err}
	}
	if !res.Valid() {
		errs := res.Errors()
		return nil, &ParseError{Path: fName, Err: fmt.Errorf("%s", errs[0].String())}
	}

	var raw lockfileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: fName, Err: err}
	}

	lock := New()
	lock.Version = raw.Version
	lock.ManifestHash = raw.ManifestHash

	// Entries are normalized to pattern order on load so parsing is
	// deterministic regardless of key ordering in the source file.
	keys := make([]string, 0, len(raw.Packages))
	for key := range raw.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lock.packages.Set(key, raw.Packages[key])
	}
	return lock, nil
}

func (l *Lockfile) GetLocked(p pattern.Pattern) (Entry, bool) {
	return l.packages.Get(p.Key())
}

func (l *Lockfile) SetLocked(p pattern.Pattern, e Entry) {
	l.packages.Set(p.Key(), e)
}

// RemovePattern evicts a pattern's entry so the next resolution
// treats it as fresh. The upgrade flow relies on this to keep a stale
// pin from masking a new range.
func (l *Lockfile) RemovePattern(p pattern.Pattern) {
	l.packages.Delete(p.Key())
}

func (l *Lockfile) Len() int {
	return l.packages.Len()
}

// Patterns returns all locked pattern keys in sorted order.
func (l *Lockfile) Patterns() []string {
	keys := make([]string, 0, l.packages.Len())
	for pair := l.packages.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	sort.Strings(keys)
	return keys
}

// Valid reports whether an entry still answers its pattern: the
// pattern's range, interpreted against the pinned version, must be
// satisfied. A hand-edited manifest can leave a stale pin behind;
// such entries must be re-resolved.
func Valid(p pattern.Pattern, e Entry) bool {
	rng := p.Range
	if !p.HasRange || rng == "" {
		rng = "*"
	}
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(e.Version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Save writes the lockfile atomically with entries in sorted pattern
// order, keeping the file human-diffable and byte-stable.
func (l *Lockfile) Save(dir string) error {
	out := lockfileJSON{
		Version:      l.Version,
		ManifestHash: l.ManifestHash,
		Packages:     map[string]Entry{},
	}
	for pair := l.packages.Oldest(); pair != nil; pair = pair.Next() {
		out.Packages[pair.Key] = pair.Value
	}
	if err := filesys.WriteJSON(filepath.Join(dir, LockfileName), out); err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}
