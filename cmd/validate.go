package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/maestro/internal/adapters/taskfile"
)

// validateOptions defines flags for the `validate` command.
type validateOptions struct {
	global *globalOptions

	format string
}

func (o *validateOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "auto", "Task file format: auto, json, yaml, toml, hcl")
}

// run validates every file concurrently and reports each result in
// argument order.
func (o *validateOptions) run(cmd *cobra.Command, files []string) error {
	format, err := taskfile.ParseFormat(o.format)
	if err != nil {
		return err
	}
	reg, err := o.global.registry()
	if err != nil {
		return err
	}

	results := make([]error, len(files))
	var mu sync.Mutex
	p := pool.New().WithErrors().WithMaxGoroutines(o.global.cfg.WorkerPool.MaxWorkers)
	for i, file := range files {
		p.Go(func() error {
			descs, err := taskfile.Load(file, format)
			if err == nil {
				// Resolving bodies catches unknown kinds and bad attributes.
				for _, d := range descs {
					if _, err = reg.Resolve(d); err != nil {
						err = fmt.Errorf("task '%s': %w", d.Name, err)
						break
					}
				}
			}
			mu.Lock()
			results[i] = err
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	joined := p.Wait()

	out := cmd.OutOrStdout()
	for i, file := range files {
		if results[i] != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", file, results[i])
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", file)
	}
	if joined != nil {
		return errors.New("validation failed")
	}
	return nil
}

// newCmdValidate creates the `validate` command.
func newCmdValidate(global *globalOptions) *cobra.Command {
	o := &validateOptions{global: global}

	command := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check task files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	o.addFlags(command)
	return command
}
