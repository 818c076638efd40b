package registry

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/acronis/go-pkgdep/pkg/manifest"
)

// Packument is the full published state of one package name: every
// version's manifest plus the dist-tags the registry advertises.
type Packument struct {
	Name   string
	Latest string
	// Versions is sorted ascending; the resolver relies on the order
	// for highest-version tie-breaks.
	Versions  []*semver.Version
	Manifests map[string]*manifest.Manifest
}

// Manifest returns the manifest for an exact version.
func (p *Packument) Manifest(version string) (*manifest.Manifest, bool) {
	m, ok := p.Manifests[version]
	return m, ok
}

// Client is the metadata/artifact fetch collaborator. Both calls are
// fallible and potentially slow; retry and backoff policy belongs to
// the implementation, never to the resolution core.
type Client interface {
	FetchPackument(ctx context.Context, name string) (*Packument, error)
	FetchArtifact(ctx context.Context, name, version string) ([]byte, error)
}

// FetchError reports an unreachable or failing metadata/artifact
// source after the collaborator's own retries are exhausted.
type FetchError struct {
	Name       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s from %s: unexpected status %d", e.Name, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Name, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
