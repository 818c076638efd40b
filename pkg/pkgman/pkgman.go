package pkgman

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acronis/go-pkgdep/pkg/audit"
	"github.com/acronis/go-pkgdep/pkg/lockfile"
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/registry"
	"github.com/acronis/go-pkgdep/pkg/resolver"
	"github.com/acronis/go-pkgdep/pkg/store"
)

// PackageManager ties resolution, integrity verification, the
// artifact store and lockfile persistence together for the command
// layer.
type PackageManager interface {
	// Install resolves the project's dependencies and persists the
	// lockfile. force ignores existing pins and re-resolves from
	// scratch.
	Install(ctx context.Context, dir string, force bool) error
	// Add records new direct dependencies in the root manifest and
	// installs them.
	Add(ctx context.Context, dir string, patterns []pattern.Pattern) error
	// Outdated reports current/wanted/latest per pattern without
	// touching the lockfile.
	Outdated(ctx context.Context, dir string, patterns []pattern.Pattern) ([]resolver.Dependency, error)
	// Upgrade rewrites the given patterns' pins: it evicts them from
	// the lockfile and re-installs, so the new ranges take effect.
	Upgrade(ctx context.Context, dir string, patterns []pattern.Pattern) error
	// Audit builds the vulnerability-service payload for the resolved
	// graph.
	Audit(ctx context.Context, dir string) (*audit.Payload, error)
	// Verify re-checks cached artifacts against lockfile pins and the
	// store's own manifest.
	Verify(ctx context.Context, dir string) error
}

type Option func(*packageManager)

type packageManager struct {
	client      registry.Client
	store       *store.Store
	concurrency int
}

func New(client registry.Client, options ...Option) (PackageManager, error) {
	pm := &packageManager{
		client:      client,
		concurrency: resolver.DefaultConcurrency,
	}
	for _, o := range options {
		o(pm)
	}

	if pm.store == nil {
		cacheDir, err := store.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		pm.store = store.New(cacheDir)
	}
	return pm, nil
}

func WithStore(s *store.Store) Option {
	return func(pm *packageManager) {
		pm.store = s
	}
}

func WithConcurrency(n int) Option {
	return func(pm *packageManager) {
		if n > 0 {
			pm.concurrency = n
		}
	}
}

func (pm *packageManager) newResolver() *resolver.Resolver {
	return resolver.New(pm.client, resolver.WithConcurrency(pm.concurrency))
}

func (pm *packageManager) Add(ctx context.Context, dir string, patterns []pattern.Pattern) error {
	root, err := manifest.ReadRoot(dir)
	if err != nil {
		return fmt.Errorf("read root manifest: %w", err)
	}

	for _, p := range patterns {
		rng := p.Range
		if !p.HasRange {
			// a bare name means "current latest", pinned with a caret
			pack, err := pm.client.FetchPackument(ctx, p.Name)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", p.Name, err)
			}
			rng = "^" + pack.Latest
		}
		root.Requires[p.Name] = rng
		slog.Info("Added direct dependency",
			slog.String("package", p.Name),
			slog.String("range", rng),
		)
	}

	if err := root.Save(); err != nil {
		return fmt.Errorf("save root manifest: %w", err)
	}
	return pm.Install(ctx, dir, false)
}

func (pm *packageManager) Outdated(ctx context.Context, dir string, patterns []pattern.Pattern) ([]resolver.Dependency, error) {
	lock, err := lockfile.FromDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("load lockfile: %w", err)
	}
	return pm.newResolver().Outdated(ctx, lock, patterns)
}

func (pm *packageManager) Upgrade(ctx context.Context, dir string, patterns []pattern.Pattern) error {
	lock, err := lockfile.FromDirectory(dir)
	if err != nil {
		return fmt.Errorf("load lockfile: %w", err)
	}

	// evicting the pins keeps a stale lock entry from masking the
	// new ranges on the next resolve; the eviction stays in memory
	// until the run succeeds, so a failed run keeps the old pins
	for _, p := range patterns {
		lock.RemovePattern(p)
		slog.Info("Evicted lockfile pin", slog.String("pattern", p.Key()))
	}

	return pm.install(ctx, dir, lock)
}

func (pm *packageManager) Audit(ctx context.Context, dir string) (*audit.Payload, error) {
	root, err := manifest.ReadRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("read root manifest: %w", err)
	}
	lock, err := lockfile.FromDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("load lockfile: %w", err)
	}

	g, err := pm.newResolver().Resolve(ctx, root, lock)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return audit.BuildPayload(root, g), nil
}
