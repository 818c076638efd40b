package addcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/pattern"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
)

func New(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "add name[@range]...",
		Short: "add direct dependencies to the root manifest and install them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := command.GetWorkingDir(cmd)
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			pm, err := command.InitializePackageManager(cmd)
			if err != nil {
				return fmt.Errorf("initialize package manager: %w", err)
			}

			return command.WrapError(execute(ctx, pm, baseDir, args))
		},
	}
}

func execute(ctx context.Context, pm pkgman.PackageManager, baseDir string, args []string) error {
	patterns := make([]pattern.Pattern, 0, len(args))
	for _, arg := range args {
		p, err := pattern.Parse(arg)
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
	}
	return pm.Add(ctx, baseDir, patterns)
}
