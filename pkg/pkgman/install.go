package pkgman

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-pkgdep/pkg/integrity"
	"github.com/acronis/go-pkgdep/pkg/lockfile"
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/resolver"
)

func (pm *packageManager) Install(ctx context.Context, dir string, force bool) error {
	lock, err := lockfile.FromDirectory(dir)
	if err != nil {
		return fmt.Errorf("load lockfile: %w", err)
	}
	if force {
		slog.Info("Ignoring lockfile")
		lock = lockfile.New()
	}
	return pm.install(ctx, dir, lock)
}

// install runs the resolve-and-verify pipeline against an in-memory
// lockfile. The lockfile on disk is only replaced after the whole
// pipeline succeeds, so a failed run keeps the previous pins intact.
func (pm *packageManager) install(ctx context.Context, dir string, lock *lockfile.Lockfile) error {
	root, err := manifest.ReadRoot(dir)
	if err != nil {
		return fmt.Errorf("read root manifest: %w", err)
	}

	if lock.ManifestHash != "" && lock.ManifestHash != root.RequiresHash() {
		slog.Warn("Root manifest changed since lockfile was written",
			slog.String("package", root.Name),
		)
	}

	// prior pins, captured before resolution mutates the lockfile;
	// the integrity check compares computed hashes against these
	priorIntegrity := map[string]string{}
	for _, key := range lock.Patterns() {
		p, perr := pattern.Parse(key)
		if perr != nil {
			continue
		}
		if entry, ok := lock.GetLocked(p); ok {
			priorIntegrity[key] = entry.Integrity
		}
	}

	g, err := pm.newResolver().Resolve(ctx, root, lock)
	if err != nil {
		return fmt.Errorf("resolve dependencies: %w", err)
	}

	if err := pm.verifyArtifacts(ctx, g, lock, priorIntegrity); err != nil {
		return err
	}

	// only a fully successful run is persisted
	if err := lock.Save(dir); err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}

	slog.Info("Installed dependencies",
		slog.String("package", root.Name),
		slog.Int("resolved", len(g.Packages)),
	)
	return nil
}

// verifyArtifacts fetches every resolved artifact (or takes it from
// the cache), applies the three-way integrity policy and records the
// computed digest in the lockfile entry.
func (pm *packageManager) verifyArtifacts(ctx context.Context, g *resolver.Graph, lock *lockfile.Lockfile, priorIntegrity map[string]string) error {
	var lmu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(pm.concurrency)
	for _, key := range g.Keys() {
		key := key
		rp := g.Packages[key]
		eg.Go(func() error {
			data, err := pm.fetchArtifact(egCtx, rp)
			if err != nil {
				return err
			}

			computed, err := integrity.Verify(rp.Name, rp.Version, data,
				rp.Integrity, priorIntegrity[key], g.Changed[key])
			if err != nil {
				return err
			}

			if err := pm.store.Put(rp.Name, rp.Version, data); err != nil {
				return err
			}

			lmu.Lock()
			defer lmu.Unlock()
			p, perr := pattern.Parse(key)
			if perr != nil {
				return perr
			}
			entry, ok := lock.GetLocked(p)
			if !ok {
				return fmt.Errorf("resolved pattern %s has no lockfile entry", key)
			}
			entry.Integrity = computed
			lock.SetLocked(p, entry)
			return nil
		})
	}
	return eg.Wait()
}

func (pm *packageManager) fetchArtifact(ctx context.Context, rp *resolver.ResolvedPackage) ([]byte, error) {
	if pm.store.Has(rp.Name, rp.Version) {
		return pm.store.Get(rp.Name, rp.Version)
	}
	return pm.client.FetchArtifact(ctx, rp.Name, rp.Version)
}

func (pm *packageManager) Verify(_ context.Context, dir string) error {
	lock, err := lockfile.FromDirectory(dir)
	if err != nil {
		return fmt.Errorf("load lockfile: %w", err)
	}

	checked := 0
	missing := 0
	for _, key := range lock.Patterns() {
		p, perr := pattern.Parse(key)
		if perr != nil {
			continue
		}
		entry, ok := lock.GetLocked(p)
		if !ok || entry.Integrity == "" {
			continue
		}
		if !pm.store.Has(p.Name, entry.Version) {
			missing++
			slog.Warn("Locked artifact is not in the cache, skipping",
				slog.String("package", p.Name),
				slog.String("version", entry.Version),
			)
			continue
		}

		data, err := pm.store.Get(p.Name, entry.Version)
		if err != nil {
			return err
		}
		if computed := integrity.Compute(data); computed != entry.Integrity {
			return &integrity.MismatchError{
				Name: p.Name, Version: entry.Version,
				Field: "lockfile", Want: entry.Integrity, Got: computed,
			}
		}
		checked++
	}

	if err := pm.store.SelfCheck(); err != nil {
		return fmt.Errorf("store self-check: %w", err)
	}
	slog.Info("Verified cached artifacts",
		slog.Int("checked", checked),
		slog.Int("missing", missing),
	)
	return nil
}
