package outdatedcmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
	"github.com/acronis/go-pkgdep/pkg/resolver"
)

func New(ctx context.Context) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "outdated [patterns...]",
		Short: "list dependencies whose locked version lags behind the registry",
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

			return command.WrapError(execute(ctx, pm, cmd.OutOrStdout(), baseDir, args, scope))
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "only report packages whose name starts with the given scope prefix")
	return cmd
}

func execute(ctx context.Context, pm pkgman.PackageManager, out io.Writer, baseDir string, args []string, scope string) error {
	var patterns []pattern.Pattern
	for _, arg := range args {
		p, err := pattern.Parse(arg)
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
	}

	deps, err := pm.Outdated(ctx, baseDir, patterns)
	if err != nil {
		return err
	}
	deps = filterScope(deps, scope)
	if len(deps) == 0 {
		fmt.Fprintln(out, "All dependencies are up to date.")
		return nil
	}

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tCURRENT\tWANTED\tLATEST\t")
	for _, d := range deps {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t", d.Name, d.Current, d.Wanted, d.Latest)
		if d.Hint != "" {
			line += " " + d.Hint
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func filterScope(deps []resolver.Dependency, scope string) []resolver.Dependency {
	if scope == "" {
		return deps
	}
	kept := deps[:0]
	for _, d := range deps {
		if strings.HasPrefix(d.Name, scope) {
			kept = append(kept, d)
		}
	}
	return kept
}
