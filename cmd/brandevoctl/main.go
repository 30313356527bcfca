package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type globalOptions struct {
	configPath string
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{out: out}
	root := &cobra.Command{
		Use:   "brandevoctl",
		Short: "Evolutionary optimizer for brand content parameters",
		Long: `brandevoctl runs and inspects the generation log that tunes the
parameter vector handed to content production.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration (defaults when empty)")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newParametersCmd(opts),
		newHistoryCmd(opts),
		newGenerationCmd(opts),
		newExportCmd(opts),
		newEvolveCmd(opts),
		newSubmitCmd(opts),
		newValidateConfigCmd(opts),
	)
	return root
}
