package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/pkg/config"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
	"github.com/acronis/go-pkgdep/pkg/registry/npmregistry"
	"github.com/acronis/go-pkgdep/pkg/store"
)

// InitializePackageManager builds the package manager from the
// project's .pkgdep.yaml, falling back to defaults for a missing
// file.
func InitializePackageManager(cmd *cobra.Command) (pkgman.PackageManager, error) {
	baseDir, err := GetWorkingDir(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.FromDirectory(baseDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	options := []pkgman.Option{
		pkgman.WithConcurrency(cfg.Concurrency),
	}
	if cfg.CacheDir != "" {
		options = append(options, pkgman.WithStore(store.New(cfg.CacheDir)))
	}

	return pkgman.New(
		npmregistry.New(npmregistry.WithBaseURL(cfg.Registry)),
		options...,
	)
}
