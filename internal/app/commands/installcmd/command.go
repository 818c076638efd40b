package installcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
)

func New(ctx context.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install [patterns...]",
		Short: "resolve the project's dependencies and write the lockfile",
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

			return command.WrapError(execute(ctx, pm, baseDir, args, force))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore the lockfile and re-resolve from scratch")
	return cmd
}

func execute(ctx context.Context, pm pkgman.PackageManager, baseDir string, args []string, force bool) error {
	// naming packages on the command line installs them as new
	// direct dependencies
	if len(args) != 0 {
		patterns, err := parsePatterns(args)
		if err != nil {
			return err
		}
		return pm.Add(ctx, baseDir, patterns)
	}
	return pm.Install(ctx, baseDir, force)
}

func parsePatterns(args []string) ([]pattern.Pattern, error) {
	patterns := make([]pattern.Pattern, 0, len(args))
	for _, arg := range args {
		p, err := pattern.Parse(arg)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}
