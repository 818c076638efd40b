package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-pkgdep/pkg/lockfile"
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/registry"
)

const DefaultConcurrency = 8

// ResolvedPackage is one node of the flattened dependency set. It is
// created the first time its pattern resolves and is immutable for
// the rest of the run. Parents reference it by pattern key only; the
// graph arena owns the canonical copy.
type ResolvedPackage struct {
	Name      string
	Version   string
	Resolved  string
	Integrity string
	// Requires is the declared name->range mapping.
	Requires map[string]string
	// Dependencies maps each required name to the pattern key of the
	// node that answers it.
	Dependencies map[string]string
}

// Graph is the result of one resolution run: an arena of resolved
// nodes addressed by pattern key, with edges as key references. Back
// edges from cycles are plain references into the arena, so the
// structure stays finite and inspectable.
type Graph struct {
	// Packages holds every resolved node, keyed by pattern key.
	Packages map[string]*ResolvedPackage
	// Roots maps each top-level requirement name to its pattern key.
	Roots map[string]string
	// Changed marks pattern keys whose resolved version differs from
	// the previous lockfile pin (or that are new this run). The
	// integrity verifier tolerates a stale lockfile pin only for
	// these.
	Changed map[string]bool

	// nodeByNV canonicalizes nodes per name@version: two patterns
	// that land on the same concrete version share one node.
	nodeByNV map[string]*ResolvedPackage
}

// node returns the canonical node for a name@version, creating it on
// first use.
func (g *Graph) node(rp *ResolvedPackage) *ResolvedPackage {
	nv := rp.Name + "@" + rp.Version
	if existing, ok := g.nodeByNV[nv]; ok {
		return existing
	}
	g.nodeByNV[nv] = rp
	return rp
}

// Keys returns all resolved pattern keys in sorted order.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(g.Packages))
	for key := range g.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type Option func(*Resolver)

// Resolver orchestrates pattern parsing, range resolution, the
// metadata cache and the resolution queue into a flattened dependency
// set. The cache is the single shared mutable resource; every
// mutation happens under one lock while fetches run outside it.
type Resolver struct {
	client      registry.Client
	concurrency int

	mu         sync.Mutex
	packuments map[string]*registry.Packument
	resolved   map[string]*ResolvedPackage
}

func New(client registry.Client, options ...Option) *Resolver {
	r := &Resolver{
		client:      client,
		concurrency: DefaultConcurrency,
		packuments:  map[string]*registry.Packument{},
		resolved:    map[string]*ResolvedPackage{},
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

type workItem struct {
	pat pattern.Pattern
	key string
	// path is the requester chain from the top-level request down to
	// this pattern, for diagnostics.
	path []string
}

// Resolve drives the resolution queue to completion for the root
// manifest's requirements, reusing still-valid lockfile entries and
// mutating the in-memory lockfile with every newly resolved pattern.
// It performs no disk I/O; saving is the caller's step, and only
// after a fully successful run.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.RootManifest, lock *lockfile.Lockfile) (*Graph, error) {
	g := &Graph{
		Packages: map[string]*ResolvedPackage{},
		Roots:    map[string]string{},
		Changed:  map[string]bool{},
		nodeByNV: map[string]*ResolvedPackage{},
	}

	// seen is the visited-on-run set: a pattern already enqueued or
	// resolved is never enqueued again, which closes cycles by
	// linking to the in-flight node instead of recursing.
	seen := map[string]bool{}
	var queue []workItem
	// chosen tracks canonical version choices per name for this run,
	// so later requesters whose range admits an already-chosen
	// version share that node (deduplication).
	chosen := map[string][]*semver.Version{}

	enqueue := func(name, rng string, path []string) string {
		p := pattern.Pattern{Name: name, Range: rng, HasRange: rng != ""}
		key := p.Key()
		if !seen[key] {
			seen[key] = true
			queue = append(queue, workItem{pat: p, key: key, path: path})
		}
		return key
	}

	rootNames := sortedKeys(root.Requires)
	for _, name := range rootNames {
		g.Roots[name] = enqueue(name, root.Requires[name], []string{root.Name})
	}

	for len(queue) > 0 {
		wave := queue
		queue = nil
		sort.Slice(wave, func(i, j int) bool { return wave[i].key < wave[j].key })

		var fresh []workItem
		for _, it := range wave {
			// process-scoped memo: identical requests seen at other
			// graph positions short-circuit without a fetch
			if rp := r.getResolved(it.key); rp != nil {
				rp = g.node(rp)
				r.link(g, it, rp, enqueue)
				chosen[it.pat.Name] = addVersion(chosen[it.pat.Name], rp.Version)
				continue
			}
			// a valid lockfile pin is reused without a fresh range
			// computation
			if entry, ok := lock.GetLocked(it.pat); ok && lockfile.Valid(it.pat, entry) {
				rp := &ResolvedPackage{
					Name:         it.pat.Name,
					Version:      entry.Version,
					Resolved:     entry.Resolved,
					Integrity:    entry.Integrity,
					Requires:     copyRequires(entry.Requires),
					Dependencies: map[string]string{},
				}
				rp = g.node(rp)
				r.putResolved(it.key, rp)
				r.link(g, it, rp, enqueue)
				chosen[it.pat.Name] = addVersion(chosen[it.pat.Name], rp.Version)
				continue
			}
			fresh = append(fresh, it)
		}
		if len(fresh) == 0 {
			continue
		}

		if err := r.fetchPackuments(ctx, fresh); err != nil {
			return nil, err
		}

		byName := map[string][]workItem{}
		for _, it := range fresh {
			byName[it.pat.Name] = append(byName[it.pat.Name], it)
		}
		for _, name := range sortedKeys(byName) {
			if err := r.resolveName(g, lock, name, byName[name], chosen[name], enqueue); err != nil {
				return nil, err
			}
			for _, it := range byName[name] {
				if rp := g.Packages[it.key]; rp != nil {
					chosen[name] = addVersion(chosen[name], rp.Version)
				}
			}
		}
	}

	lock.ManifestHash = root.RequiresHash()
	return g, nil
}

// fetchPackuments issues the wave's metadata fetches through a
// bounded worker pool. Completions are stored serially afterwards;
// the pool only fans out the network waits.
func (r *Resolver) fetchPackuments(ctx context.Context, items []workItem) error {
	topRequest := map[string]string{}
	var names []string
	r.mu.Lock()
	for _, it := range items {
		if _, ok := r.packuments[it.pat.Name]; ok {
			continue
		}
		if _, ok := topRequest[it.pat.Name]; ok {
			continue
		}
		topRequest[it.pat.Name] = it.path[0]
		names = append(names, it.pat.Name)
	}
	r.mu.Unlock()
	if len(names) == 0 {
		return nil
	}

	fetched := make(map[string]*registry.Packument, len(names))
	var fmu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for _, name := range names {
		name := name
		eg.Go(func() error {
			p, err := r.client.FetchPackument(egCtx, name)
			if err != nil {
				var ferr *registry.FetchError
				if errors.As(err, &ferr) {
					return fmt.Errorf("resolving %s blocks top-level request %q: %w", name, topRequest[name], err)
				}
				return err
			}
			fmu.Lock()
			fetched[name] = p
			fmu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	for name, p := range fetched {
		r.packuments[name] = p
	}
	r.mu.Unlock()
	return nil
}

// resolveName assigns concrete versions to every new pattern of one
// name within a wave and records the outcome in the graph and the
// in-memory lockfile.
func (r *Resolver) resolveName(g *Graph, lock *lockfile.Lockfile, name string, items []workItem, prior []*semver.Version, enqueue func(string, string, []string) string) error {
	r.mu.Lock()
	pack := r.packuments[name]
	r.mu.Unlock()

	// requesters whose range admits a version already chosen for this
	// name share that version instead of adding a new copy
	assigned := map[string]*semver.Version{}
	var newRanges []string
	requesters := map[string][]string{}
	// literal remembers the declared request string behind each
	// normalized range, so diagnostics quote what the user wrote
	literal := map[string]string{}
	for _, it := range items {
		rng := normalizeRange(it.pat.Range)
		if _, ok := literal[rng]; !ok {
			literal[rng] = it.pat.Range
		}
		requesters[rng] = append(requesters[rng], formatChain(it.path))
		if _, ok := assigned[rng]; ok {
			continue
		}
		c, err := constraintFor(name, rng)
		if err != nil {
			return &UnsatisfiableRangeError{Name: name, Range: it.pat.Range, Requesters: requesters[rng]}
		}
		if v := lastSatisfying(prior, c); v != nil {
			assigned[rng] = v
			continue
		}
		newRanges = append(newRanges, rng)
	}

	if len(newRanges) > 0 {
		perRange, unsat, err := pickVersions(pack.Versions, newRanges, name)
		if err != nil {
			return err
		}
		if len(unsat) > 0 {
			sort.Strings(unsat)
			return &UnsatisfiableRangeError{
				Name:       name,
				Range:      literal[unsat[0]],
				Requesters: requesters[unsat[0]],
			}
		}
		for rng, v := range perRange {
			assigned[rng] = v
		}
	}

	for _, it := range items {
		v := assigned[normalizeRange(it.pat.Range)]
		m, ok := pack.Manifest(v.Original())
		if !ok {
			return fmt.Errorf("packument for %s has no manifest for version %s", name, v.Original())
		}

		rp := &ResolvedPackage{
			Name:         name,
			Version:      v.Original(),
			Resolved:     m.Dist.Tarball,
			Integrity:    m.Dist.Integrity,
			Requires:     copyRequires(m.Requires),
			Dependencies: map[string]string{},
		}
		rp = g.node(rp)
		r.putResolved(it.key, rp)

		prevEntry, hadPrev := lock.GetLocked(it.pat)
		if !hadPrev || prevEntry.Version != rp.Version {
			g.Changed[it.key] = true
		}
		lock.SetLocked(it.pat, lockfile.Entry{
			Version:   rp.Version,
			Resolved:  rp.Resolved,
			Integrity: rp.Integrity,
			Requires:  copyRequires(rp.Requires),
		})

		slog.Debug("Resolved pattern",
			slog.String("pattern", it.key),
			slog.String("version", rp.Version),
		)

		r.link(g, it, rp, enqueue)
	}
	return nil
}

// link registers a node in the graph arena and enqueues its
// requirements. Requirements already seen this run only gain the new
// parent edge.
func (r *Resolver) link(g *Graph, it workItem, rp *ResolvedPackage, enqueue func(string, string, []string) string) {
	g.Packages[it.key] = rp
	for _, dep := range sortedKeys(rp.Requires) {
		childPath := append(append([]string(nil), it.path...), it.key)
		rp.Dependencies[dep] = enqueue(dep, rp.Requires[dep], childPath)
	}
}

func (r *Resolver) getResolved(key string) *ResolvedPackage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved[key]
}

func (r *Resolver) putResolved(key string, rp *ResolvedPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[key] = rp
}

// addVersion records a chosen concrete version for a name. Versions
// reused from the cache or the lockfile participate in deduplication
// the same way freshly picked ones do.
func addVersion(list []*semver.Version, version string) []*semver.Version {
	v, err := semver.NewVersion(version)
	if err != nil {
		return list
	}
	for _, pv := range list {
		if pv.Equal(v) {
			return list
		}
	}
	return append(list, v)
}

func lastSatisfying(versions []*semver.Version, c *semver.Constraints) *semver.Version {
	var best *semver.Version
	for _, v := range versions {
		if c.Check(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	return best
}

func formatChain(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}

func copyRequires(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
