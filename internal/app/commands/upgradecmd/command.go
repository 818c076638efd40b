package upgradecmd

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
)

type Options struct {
	// Latest re-pins each target's declared range to the registry's
	// latest version instead of upgrading within the current range.
	Latest bool
	Caret  bool
	Tilde  bool
	Exact  bool
	// Scope restricts the default target set to names with the given
	// prefix.
	Scope string
}

func New(ctx context.Context) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "upgrade [patterns...]",
		Short: "re-resolve dependencies to newer versions",
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := command.GetWorkingDir(cmd)
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			pm, err := command.InitializePackageManager(cmd)
			if err != nil {
				return fmt.Errorf("initialize package manager: %w", err)
			}

			return command.WrapError(execute(ctx, pm, baseDir, args, opts))
		},
	}
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "upgrade past the declared ranges to the latest versions")
	cmd.Flags().BoolVar(&opts.Caret, "caret", false, "with --latest, declare the new range with a caret")
	cmd.Flags().BoolVar(&opts.Tilde, "tilde", false, "with --latest, declare the new range with a tilde")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "with --latest, pin the new range exactly")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "only upgrade packages whose name starts with the given scope prefix")
	return cmd
}

func execute(ctx context.Context, pm pkgman.PackageManager, baseDir string, args []string, opts Options) error {
	root, err := manifest.ReadRoot(baseDir)
	if err != nil {
		return fmt.Errorf("read root manifest: %w", err)
	}

	names, err := targetNames(root, args, opts.Scope)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		slog.Info("Nothing to upgrade.")
		return nil
	}

	// the declared patterns identify the lockfile pins to evict
	evict := make([]pattern.Pattern, 0, len(names))
	for _, name := range names {
		rng := root.Requires[name]
		evict = append(evict, pattern.Pattern{Name: name, Range: rng, HasRange: rng != ""})
	}

	if opts.Latest {
		deps, err := pm.Outdated(ctx, baseDir, evict)
		if err != nil {
			return fmt.Errorf("query latest versions: %w", err)
		}
		changed := false
		for _, d := range deps {
			declared := root.Requires[d.Name]
			next := rewriteRange(declared, d.Latest, opts)
			if next == declared {
				continue
			}
			root.Requires[d.Name] = next
			changed = true
			slog.Info("Upgraded declared range",
				slog.String("package", d.Name),
				slog.String("from", declared),
				slog.String("to", next),
			)
		}
		if changed {
			if err := root.Save(); err != nil {
				return fmt.Errorf("save root manifest: %w", err)
			}
		}
	}

	return pm.Upgrade(ctx, baseDir, evict)
}

func targetNames(root *manifest.RootManifest, args []string, scope string) ([]string, error) {
	if len(args) != 0 {
		names := make([]string, 0, len(args))
		for _, arg := range args {
			p, err := pattern.Parse(arg)
			if err != nil {
				return nil, err
			}
			if _, ok := root.Requires[p.Name]; !ok {
				return nil, fmt.Errorf("%s is not a direct dependency", p.Name)
			}
			names = append(names, p.Name)
		}
		return names, nil
	}

	var names []string
	for name := range root.Requires {
		if scope != "" && !strings.HasPrefix(name, scope) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// rangeOpRe extracts the operator of a simple declared range; complex
// ranges (unions, comparators) yield no operator and re-pin exactly.
var rangeOpRe = regexp.MustCompile(`^[\^~]`)

// rewriteRange computes the new declared range for an upgrade to
// latest. An explicit operator flag wins; otherwise the declared
// range's own operator carries over.
func rewriteRange(declared, latest string, opts Options) string {
	switch {
	case opts.Caret:
		return "^" + latest
	case opts.Tilde:
		return "~" + latest
	case opts.Exact:
		return latest
	}

	switch declared {
	case "", "*", "latest":
		// already tracks latest, nothing to rewrite
		return declared
	}
	if op := rangeOpRe.FindString(declared); op != "" {
		return op + latest
	}
	return latest
}
