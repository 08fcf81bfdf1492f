package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCmdRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newCmdRoot creates the `maestro` command and its subcommands.
func newCmdRoot() *cobra.Command {
	o := newGlobalOptions()

	command := &cobra.Command{
		Use:           "maestro",
		Short:         "Run tasks in dependency order",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.complete(cmd)
		},
	}

	o.addFlags(command)
	command.AddCommand(
		newCmdRun(o),
		newCmdValidate(o),
		newCmdOrder(o),
		newCmdGraph(o),
		newCmdDemo(o),
		newCmdKinds(o),
	)
	return command
}
