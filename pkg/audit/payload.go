package audit

import (
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/resolver"
)

// Node is one package in the audit payload's nested dependency view.
type Node struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Integrity    string            `json:"integrity,omitempty"`
	Requires     map[string]string `json:"requires,omitempty"`
	Dependencies map[string]*Node  `json:"dependencies,omitempty"`
}

// Payload is the structure posted to a vulnerability-matching
// service. This package only builds it; interpreting any response is
// the audit tooling's concern.
type Payload struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Requires     map[string]string `json:"requires"`
	Dependencies map[string]*Node  `json:"dependencies"`
}

// BuildPayload flattens a resolved graph into the nested audit shape,
// keyed by top-level requirement name. Shared subtrees are emitted
// once per distinct path prefix; cycles terminate at the first
// repeated pattern on the path.
func BuildPayload(root *manifest.RootManifest, g *resolver.Graph) *Payload {
	p := &Payload{
		Name:         root.Name,
		Version:      root.Version,
		Requires:     map[string]string{},
		Dependencies: map[string]*Node{},
	}
	for name, rng := range root.Requires {
		p.Requires[name] = rng
	}

	for name, key := range g.Roots {
		if node := buildNode(g, key, map[string]bool{}); node != nil {
			p.Dependencies[name] = node
		}
	}
	return p
}

func buildNode(g *resolver.Graph, key string, onPath map[string]bool) *Node {
	rp, ok := g.Packages[key]
	if !ok || onPath[key] {
		return nil
	}
	onPath[key] = true
	defer delete(onPath, key)

	node := &Node{
		Name:      rp.Name,
		Version:   rp.Version,
		Integrity: rp.Integrity,
	}
	if len(rp.Requires) > 0 {
		node.Requires = map[string]string{}
		for name, rng := range rp.Requires {
			node.Requires[name] = rng
		}
	}
	for name, childKey := range rp.Dependencies {
		child := buildNode(g, childKey, onPath)
		if child == nil {
			continue
		}
		if node.Dependencies == nil {
			node.Dependencies = map[string]*Node{}
		}
		node.Dependencies[name] = child
	}
	return node
}
