package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/resolver"
)

func Test_BuildPayload(t *testing.T) {
	g := &resolver.Graph{
		Packages: map[string]*resolver.ResolvedPackage{
			"minimatch@^3.0.0": {
				Name: "minimatch", Version: "3.0.0", Integrity: "sha512-mm",
				Requires:     map[string]string{"brace-expansion": "^1.0.0"},
				Dependencies: map[string]string{"brace-expansion": "brace-expansion@^1.0.0"},
			},
			"brace-expansion@^1.0.0": {
				Name: "brace-expansion", Version: "1.1.11", Integrity: "sha512-be",
				Requires:     map[string]string{"concat-map": "0.0.1"},
				Dependencies: map[string]string{"concat-map": "concat-map@0.0.1"},
			},
			"concat-map@0.0.1": {
				Name: "concat-map", Version: "0.0.1", Integrity: "sha512-cm",
			},
		},
		Roots: map[string]string{"minimatch": "minimatch@^3.0.0"},
	}
	root := &manifest.RootManifest{
		Name: "app", Version: "1.0.0",
		Requires: map[string]string{"minimatch": "^3.0.0"},
	}

	p := BuildPayload(root, g)
	require.Equal(t, "app", p.Name)
	require.Equal(t, map[string]string{"minimatch": "^3.0.0"}, p.Requires)

	mm := p.Dependencies["minimatch"]
	require.NotNil(t, mm)
	require.Equal(t, "3.0.0", mm.Version)
	require.Equal(t, "sha512-mm", mm.Integrity)

	be := mm.Dependencies["brace-expansion"]
	require.NotNil(t, be)
	cm := be.Dependencies["concat-map"]
	require.NotNil(t, cm)
	require.Equal(t, "0.0.1", cm.Version)

	// JSON-stable: the payload marshals without error and keeps the
	// nested shape
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.Contains(t, string(data), `"dependencies"`)
}

func Test_BuildPayload_CycleTerminates(t *testing.T) {
	g := &resolver.Graph{
		Packages: map[string]*resolver.ResolvedPackage{
			"a@^1.0.0": {
				Name: "a", Version: "1.0.0",
				Requires:     map[string]string{"b": "^1.0.0"},
				Dependencies: map[string]string{"b": "b@^1.0.0"},
			},
			"b@^1.0.0": {
				Name: "b", Version: "1.0.0",
				Requires:     map[string]string{"a": "^1.0.0"},
				Dependencies: map[string]string{"a": "a@^1.0.0"},
			},
		},
		Roots: map[string]string{"a": "a@^1.0.0"},
	}
	root := &manifest.RootManifest{Name: "app", Requires: map[string]string{"a": "^1.0.0"}}

	p := BuildPayload(root, g)
	a := p.Dependencies["a"]
	require.NotNil(t, a)
	b := a.Dependencies["b"]
	require.NotNil(t, b)
	// the back edge to a is cut instead of recursing forever
	require.Nil(t, b.Dependencies["a"])
}
