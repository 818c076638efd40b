package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/acronis/go-stacktrace"
	slogex "github.com/acronis/go-stacktrace/slogex"
	"github.com/dusted-go/logging/prettylog"
	"github.com/mattn/go-isatty"
	slogformatter "github.com/samber/slog-formatter"
	"github.com/spf13/cobra"

	"github.com/acronis/go-pkgdep/internal/app/command"
	"github.com/acronis/go-pkgdep/internal/app/commands/addcmd"
	"github.com/acronis/go-pkgdep/internal/app/commands/auditcmd"
	"github.com/acronis/go-pkgdep/internal/app/commands/installcmd"
	"github.com/acronis/go-pkgdep/internal/app/commands/outdatedcmd"
	"github.com/acronis/go-pkgdep/internal/app/commands/upgradecmd"
	"github.com/acronis/go-pkgdep/internal/app/commands/verifycmd"
)

var version = "dev"

func initLogging(verbose bool) {
	logLvl := func() slog.Level {
		if verbose {
			return slog.LevelDebug
		}
		return slog.LevelInfo
	}()
	w := os.Stderr

	logger := slog.New(
		slogformatter.NewFormatterHandler(
			slogformatter.HTTPRequestFormatter(false),
			slogformatter.HTTPResponseFormatter(false),
			slogformatter.FormatByType(func(s []string) slog.Value {
				return slog.StringValue(strings.Join(s, ","))
			}),
		)(
			prettylog.New(&slog.HandlerOptions{Level: logLvl},
				prettylog.WithDestinationWriter(w),
				func() prettylog.Option {
					if isatty.IsTerminal(w.Fd()) {
						return prettylog.WithColor()
					}
					return func(_ *prettylog.Handler) {}
				}(),
			),
		),
	)
	slog.SetDefault(logger)
}

const (
	verboseFlag = "verbose"
)

func main() {
	os.Exit(mainFn())
}

func mainFn() int {
	var ensureDuplicates bool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	rootCmd := func() *cobra.Command {
		cmd := &cobra.Command{
			Use:           "pkgdep",
			Short:         "pkgdep is a dependency manager with reproducible lockfiles",
			SilenceUsage:  true,
			SilenceErrors: true,
			PersistentPreRun: func(cmd *cobra.Command, _ []string) {
				verbose, err := cmd.Flags().GetBool(verboseFlag)
				if err != nil {
					fmt.Printf("Failed to get verbosity flag: %v\n", err)
					os.Exit(1)
				}

				initLogging(verbose)
			},
			CompletionOptions: cobra.CompletionOptions{
				DisableDefaultCmd: true,
			},
		}
		command.AddWorkDirFlag(cmd)
		cmd.PersistentFlags().BoolP(verboseFlag, "v", false, "verbose output")
		cmd.Flags().BoolVarP(&ensureDuplicates, "ensure-duplicates", "d", false, "ensure that there are no duplicates in tracebacks")

		cmd.AddCommand(
			installcmd.New(ctx),
			addcmd.New(ctx),
			outdatedcmd.New(ctx),
			upgradecmd.New(ctx),
			auditcmd.New(ctx),
			verifycmd.New(ctx),
			&cobra.Command{
				Use:   "version",
				Short: "print a version of tool",
				Args:  cobra.MinimumNArgs(0),
				RunE: func(cmd *cobra.Command, args []string) error {
					fmt.Fprintln(cmd.OutOrStdout(), version)
					return nil
				},
			},
		)
		return cmd
	}()

	if err := rootCmd.Execute(); err != nil {
		var cmdErr *command.Error
		if errors.As(err, &cmdErr) && cmdErr.Inner != nil {
			stOpts := func() []stacktrace.TracesOpt {
				if ensureDuplicates {
					return []stacktrace.TracesOpt{stacktrace.WithEnsureDuplicates()}
				}
				return []stacktrace.TracesOpt{}
			}()

			slog.Error("Command failed", slogex.ErrToSlogAttr(cmdErr.Inner, stOpts...))
		} else {
			_ = rootCmd.Usage()
		}
		return 1
	}

	return 0
}
