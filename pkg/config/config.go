package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = ".pkgdep.yaml"

// Config carries the tool-level settings the resolution core itself
// does not own: where the registry lives, how wide the fetch pool is,
// where artifacts are cached.
type Config struct {
	Registry    string `yaml:"registry"`
	Concurrency int    `yaml:"concurrency"`
	CacheDir    string `yaml:"cacheDir"`
}

func Default() Config {
	return Config{
		Registry:    "https://registry.npmjs.org",
		Concurrency: 8,
	}
}

// FromDirectory reads .pkgdep.yaml from dir, falling back to defaults
// for a missing file or unset fields.
func FromDirectory(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if cfg.Registry == "" {
		cfg.Registry = Default().Registry
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = Default().Concurrency
	}
	return cfg, nil
}
