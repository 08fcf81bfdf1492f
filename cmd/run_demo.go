package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/maestro/internal/adapters/kinds"
	"github.com/ZanzyTHEbar/maestro/internal/domain"
	"github.com/ZanzyTHEbar/maestro/internal/logging"
)

// createExampleTasks builds the demo graph directly, without a task file:
// two branches under Root and a sum joining the first one.
func createExampleTasks() []*domain.Task {
	a := domain.NewTask("A")
	b := domain.NewTask("B")
	c := domain.NewTask("C", a)
	d := domain.NewTask("D", a)
	e := domain.NewTask("E", b)
	f := domain.NewTask("F", b)

	total := domain.NewTask("total", c, d)
	total.Kind = "sum"
	total.Body = kinds.SumBody{}
	total.Attributes["first"] = 2
	total.Attributes["second"] = 3

	return []*domain.Task{a, b, c, d, e, f, total}
}

// newCmdDemo creates the `demo` command.
func newCmdDemo(global *globalOptions) *cobra.Command {
	var workers int

	command := &cobra.Command{
		Use:   "demo",
		Short: "Run a built-in example graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := domain.NewOrchestrator(createExampleTasks(),
				domain.WithLogger(global.logger),
				domain.WithMaxWorkers(workers),
				domain.WithNotifier(logging.NewLifecyclePrinter(cmd.OutOrStdout())),
			)
			if err != nil {
				return err
			}
			report, err := orch.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total = %v\n", report.Results["total"].Value)
			return nil
		},
	}

	command.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent tasks")
	return command
}

// newCmdKinds creates the `kinds` command.
func newCmdKinds(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the task kinds a task file can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := global.registry()
			if err != nil {
				return err
			}
			for _, k := range reg.Kinds() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", k.Name, k.Description)
			}
			return nil
		},
	}
}
