package resolver

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-pkgdep/pkg/lockfile"
	"github.com/acronis/go-pkgdep/pkg/pattern"
)

// Dependency is one row of the outdated report. Current is the
// version pinned in the lockfile now, Wanted the highest version
// satisfying the declared range, Latest the highest published version
// regardless of range.
type Dependency struct {
	Name    string
	Current string
	Wanted  string
	Latest  string
	Range   string
	URL     string
	Hint    string
	// LatestPattern is the plain name@latest-version request; the
	// upgrade command applies its own range-operator policy on top.
	LatestPattern string
}

// Outdated reports current/wanted/latest for each given pattern (all
// locked patterns when none are given). It is a read-only variant of
// resolution: it never consults the shared resolved cache or mutates
// the lockfile, since its purpose is precisely to discover drift from
// the pins.
func (r *Resolver) Outdated(ctx context.Context, lock *lockfile.Lockfile, patterns []pattern.Pattern) ([]Dependency, error) {
	if len(patterns) == 0 {
		for _, key := range lock.Patterns() {
			p, err := pattern.Parse(key)
			if err != nil {
				continue
			}
			patterns = append(patterns, p)
		}
	}

	deps := make([]Dependency, len(patterns))
	var dmu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, p := range patterns {
		i, p := i, p
		eg.Go(func() error {
			d, err := r.outdatedOne(egCtx, lock, p)
			if err != nil {
				return err
			}
			dmu.Lock()
			deps[i] = d
			dmu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}

func (r *Resolver) outdatedOne(ctx context.Context, lock *lockfile.Lockfile, p pattern.Pattern) (Dependency, error) {
	pack, err := r.client.FetchPackument(ctx, p.Name)
	if err != nil {
		return Dependency{}, err
	}

	d := Dependency{
		Name:  p.Name,
		Range: p.Range,
	}
	if entry, ok := lock.GetLocked(p); ok {
		d.Current = entry.Version
	}

	c, err := constraintFor(p.Name, p.Range)
	if err != nil {
		return Dependency{}, &UnsatisfiableRangeError{Name: p.Name, Range: p.Range}
	}
	if wanted := maxSatisfying(pack.Versions, c); wanted != nil {
		d.Wanted = wanted.Original()
	}

	latest := pack.Latest
	if latest == "" && len(pack.Versions) > 0 {
		latest = pack.Versions[len(pack.Versions)-1].Original()
	}
	d.Latest = latest
	d.LatestPattern = p.Name + "@" + latest

	if m, ok := pack.Manifest(latest); ok {
		d.URL = m.Dist.Tarball
		d.Hint = m.Deprecated
	}
	return d, nil
}
