package verifycmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
)

func New(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "re-check cached artifacts against the lockfile pins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := command.GetWorkingDir(cmd)
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			pm, err := command.InitializePackageManager(cmd)
			if err != nil {
				return fmt.Errorf("initialize package manager: %w", err)
			}

			return command.WrapError(execute(ctx, pm, baseDir))
		},
	}
}

func execute(ctx context.Context, pm pkgman.PackageManager, baseDir string) error {
	if err := pm.Verify(ctx, baseDir); err != nil {
		return err
	}
	slog.Info("All cached artifacts match the lockfile.")
	return nil
}
