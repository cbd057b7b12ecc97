package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowgraph/version"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitInvalid reports that at least one document failed validation or compilation.
	ExitInvalid = 2
)

// errInvalid marks a run that completed but rejected some documents.
var errInvalid = stderrors.New("one or more documents are not compilable")

func exitCode(err error) int {
	if stderrors.Is(err, errInvalid) {
		return ExitInvalid
	}
	return ExitError
}

type globalFlags struct {
	configFile string
	envFile    string
	verbose    bool
}

// Execute runs the root command with args. SIGINT and SIGTERM cancel ctx.
func Execute(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   version.Name,
		Short: "Compile canvas graphs into orchestration workflows",
		Long: `flowgraph turns a visual canvas of program, fork and join nodes into
an ordered task list for a workflow engine.

Documents can be validated or compiled locally, or served over HTTP.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to the config file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to a .env file")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every validation and compile to stderr")

	cmd.AddCommand(
		newValidateCmd(flags),
		newCompileCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return cmd
}
