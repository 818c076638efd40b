package auditcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/pkg/pkgman"
)

func New(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "print the dependency graph as a vulnerability-service payload",
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

			return command.WrapError(execute(ctx, pm, cmd.OutOrStdout(), baseDir))
		},
	}
}

func execute(ctx context.Context, pm pkgman.PackageManager, out io.Writer, baseDir string) error {
	payload, err := pm.Audit(ctx, baseDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
