package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/maestro/internal/adapters/render"
	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// graphOptions defines flags for the `order` and `graph` commands.
type graphOptions struct {
	global *globalOptions

	file    string
	format  string
	output  string
	mermaid bool
}

func (o *graphOptions) addFlags(cmd *cobra.Command, drawing bool) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "Task file to read")
	cmd.Flags().StringVar(&o.format, "format", "auto", "Task file format: auto, json, yaml, toml, hcl")
	_ = cmd.MarkFlagRequired("file")
	if drawing {
		cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write to this file instead of stdout")
		cmd.Flags().BoolVar(&o.mermaid, "mermaid", false, "Write a Mermaid flowchart instead of Graphviz DOT")
	}
}

// orchestrator builds an orchestrator without running it, which validates
// the graph and computes its execution order.
func (o *graphOptions) orchestrator() (*domain.Orchestrator, error) {
	tasks, err := o.global.loadTasks(o.file, o.format)
	if err != nil {
		return nil, err
	}
	return domain.NewOrchestrator(tasks, domain.WithLogger(o.global.logger))
}

func (o *graphOptions) runOrder(cmd *cobra.Command) error {
	orch, err := o.orchestrator()
	if err != nil {
		return err
	}
	for i, t := range orch.Order() {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, t.Name)
	}
	return nil
}

func (o *graphOptions) runGraph(cmd *cobra.Command) error {
	orch, err := o.orchestrator()
	if err != nil {
		return err
	}
	g := render.FromDAG(orch.DAG(), orch.Order(), nil)

	var w io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if o.mermaid {
		return render.WriteMermaid(w, g)
	}
	return render.WriteDOT(w, "maestro", g)
}

// newCmdOrder creates the `order` command.
func newCmdOrder(global *globalOptions) *cobra.Command {
	o := &graphOptions{global: global}

	command := &cobra.Command{
		Use:   "order",
		Short: "Print the execution order of a task file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runOrder(cmd)
		},
	}

	o.addFlags(command, false)
	return command
}

// newCmdGraph creates the `graph` command.
func newCmdGraph(global *globalOptions) *cobra.Command {
	o := &graphOptions{global: global}

	command := &cobra.Command{
		Use:   "graph",
		Short: "Draw the dependency graph of a task file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runGraph(cmd)
		},
	}

	o.addFlags(command, true)
	return command
}
