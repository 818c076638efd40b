// Package testsupp provides in-memory test doubles for the registry
// collaborator.
package testsupp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/acronis/go-pkgdep/pkg/integrity"
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/registry"
)

// Registry is an in-memory registry.Client. Versions are registered
// with AddVersion; artifact bytes are deterministic per name+version
// and their SRI digest is pre-declared in each manifest's dist block.
type Registry struct {
	mu         sync.Mutex
	manifests  map[string]map[string]*manifest.Manifest
	failing    map[string]error
	fetchCount map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		manifests:  map[string]map[string]*manifest.Manifest{},
		failing:    map[string]error{},
		fetchCount: map[string]int{},
	}
}

// Artifact returns the deterministic tarball bytes for a version.
func Artifact(name, version string) []byte {
	return []byte("artifact:" + name + "@" + version)
}

func (r *Registry) AddVersion(name, version string, requires map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.manifests[name] == nil {
		r.manifests[name] = map[string]*manifest.Manifest{}
	}
	if requires == nil {
		requires = map[string]string{}
	}
	r.manifests[name][version] = &manifest.Manifest{
		Name:     name,
		Version:  version,
		Requires: requires,
		Dist: manifest.Dist{
			Tarball:   fmt.Sprintf("https://registry.mock/%s/-/%s.tgz", name, version),
			Integrity: integrity.Compute(Artifact(name, version)),
		},
	}
}

// TamperArtifactIntegrity declares a bogus integrity for a version,
// so any fetch of its artifact fails verification.
func (r *Registry) TamperArtifactIntegrity(name, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[name][version].Dist.Integrity = "sha512-tampered"
}

func (r *Registry) Fail(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[name] = err
}

func (r *Registry) Fetches(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchCount[name]
}

func (r *Registry) FetchPackument(_ context.Context, name string) (*registry.Packument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchCount[name]++

	if err, ok := r.failing[name]; ok {
		return nil, err
	}
	versions, ok := r.manifests[name]
	if !ok {
		return nil, &registry.FetchError{Name: name, URL: "https://registry.mock", StatusCode: 404}
	}

	p := &registry.Packument{
		Name:      name,
		Manifests: map[string]*manifest.Manifest{},
	}
	for ver, m := range versions {
		v, err := semver.NewVersion(ver)
		if err != nil {
			return nil, err
		}
		p.Versions = append(p.Versions, v)
		p.Manifests[ver] = m
	}
	sort.Sort(semver.Collection(p.Versions))
	p.Latest = p.Versions[len(p.Versions)-1].Original()
	return p, nil
}

func (r *Registry) FetchArtifact(_ context.Context, name string, version string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.manifests[name][version]; !ok {
		return nil, &registry.FetchError{Name: name, URL: "https://registry.mock", StatusCode: 404}
	}
	return Artifact(name, version), nil
}
