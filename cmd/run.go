package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/maestro/internal/adapters/eventbus"
	"github.com/ZanzyTHEbar/maestro/internal/adapters/render"
	"github.com/ZanzyTHEbar/maestro/internal/domain"
	"github.com/ZanzyTHEbar/maestro/internal/logging"
	"github.com/ZanzyTHEbar/maestro/internal/metrics"
	"github.com/ZanzyTHEbar/maestro/internal/utils"
)

// runOptions defines flags for the `run` command.
type runOptions struct {
	global *globalOptions

	file        string
	format      string
	workers     int
	failFast    bool
	timeout     time.Duration
	dotFile     string
	metricsFile string
	watch       bool
	progress    bool
	quiet       bool
}

func newRunOptions(global *globalOptions) *runOptions {
	return &runOptions{global: global}
}

// addFlags binds run flags to cmd.
func (o *runOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "Task file to run")
	cmd.Flags().StringVar(&o.format, "format", "auto", "Task file format: auto, json, yaml, toml, hcl")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 0, "Number of workers (0 = use config value)")
	cmd.Flags().BoolVar(&o.failFast, "fail-fast", false, "Cancel remaining tasks on the first failure")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Bound on the execution phase (0 = use config value)")
	cmd.Flags().StringVar(&o.dotFile, "dot", "", "Write the executed graph as Graphviz DOT to this file")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file (overrides config)")
	cmd.Flags().BoolVar(&o.watch, "watch", false, "Run again whenever the task file changes")
	cmd.Flags().BoolVar(&o.progress, "progress", false, "Show a progress bar on stderr")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Do not print task lifecycle lines")
	_ = cmd.MarkFlagRequired("file")
}

// orchestratorOptions merges flags and configuration into orchestrator options.
func (o *runOptions) orchestratorOptions() ([]domain.Option, error) {
	cfg := o.global.cfg
	timeout := o.timeout
	if timeout == 0 {
		t, err := cfg.RunTimeout()
		if err != nil {
			return nil, err
		}
		timeout = t
	}

	opts := []domain.Option{
		domain.WithLogger(o.global.logger),
		domain.WithRunID(utils.NewRunID()),
	}
	if timeout > 0 {
		opts = append(opts, domain.WithTimeout(timeout))
	}
	if o.failFast || cfg.Runner.FailFast {
		opts = append(opts, domain.WithFailFast())
	}
	return opts, nil
}

// run the `run` command.
func (o *runOptions) run(ctx context.Context, cmd *cobra.Command) error {
	if o.watch {
		return o.watchLoop(ctx, cmd)
	}
	_, err := o.runOnce(ctx, cmd)
	return err
}

// runOnce loads the task file and executes it on a fresh worker pool.
func (o *runOptions) runOnce(ctx context.Context, cmd *cobra.Command) (*domain.RunReport, error) {
	logger := o.global.logger
	tasks, err := o.global.loadTasks(o.file, o.format)
	if err != nil {
		return nil, err
	}
	opts, err := o.orchestratorOptions()
	if err != nil {
		return nil, err
	}

	pool, err := o.global.newPool(o.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Stop()

	bus := eventbus.NewSimpleEventBus(logger).WithDefaultBufferSize(o.global.cfg.EventBus.DefaultBufferSize)
	defer bus.Stop()
	stopLogging, err := logEvents(bus, logger)
	if err != nil {
		return nil, err
	}

	stats := domain.NewTaskStatsCollector()
	collector := metrics.NewCollector()
	opts = append(opts,
		domain.WithExecutor(pool),
		domain.WithNotifier(bus),
		domain.WithNotifier(stats),
		domain.WithNotifier(collector),
	)
	if !o.quiet {
		opts = append(opts, domain.WithNotifier(logging.NewLifecyclePrinter(cmd.OutOrStdout())))
	}
	if o.progress {
		opts = append(opts, domain.WithNotifier(domain.NewTaskProgressBar(cmd.ErrOrStderr(), len(tasks)+1)))
	}

	orch, err := domain.NewOrchestrator(tasks, opts...)
	if err != nil {
		stopLogging()
		return nil, err
	}
	report, runErr := orch.Run(ctx)
	stopLogging()

	printReport(cmd.OutOrStdout(), report)
	logger.Info().Msg(stats.GetStats().String())

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if o.dotFile != "" {
		if err := writeDOT(o.dotFile, render.FromDAG(orch.DAG(), orch.Order(), report)); err != nil {
			errs = append(errs, err)
		}
	}
	metricsFile := o.metricsFile
	if metricsFile == "" {
		metricsFile = o.global.cfg.System.MetricsFile
	}
	if metricsFile != "" {
		if err := utils.EnsureParentDir(metricsFile); err != nil {
			errs = append(errs, err)
		} else if err := collector.WriteTextfile(metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return report, errors.Join(errs...)
}

// logEvents subscribes a debug logger to every bus topic. The returned
// function detaches it and waits for the backlog to drain.
func logEvents(bus *eventbus.SimpleEventBus, logger zerolog.Logger) (func(), error) {
	sub, err := bus.Subscribe(eventbus.AllTopics, 0)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range sub {
			ev := logger.Debug().Str("topic", e.Topic).Str("run", e.RunID)
			if e.Task != "" {
				ev = ev.Str("task", e.Task).Stringer("state", e.State)
			}
			if e.Err != nil {
				ev = ev.AnErr("reason", e.Err)
			}
			ev.Msg("Event")
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = bus.Unsubscribe(eventbus.AllTopics, sub)
			close(sub)
			wg.Wait()
		})
	}, nil
}

// printReport writes one row per task in execution order.
func printReport(w io.Writer, report *domain.RunReport) {
	if report == nil {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "State", "Duration", "Result"})
	for _, name := range report.Order {
		res := report.Results[name]
		state := res.State.String()
		if res.Skipped {
			state = "SKIPPED"
		}
		detail := ""
		switch {
		case res.Err != nil:
			detail = res.Err.Error()
		case res.Value != nil:
			detail = fmt.Sprint(res.Value)
		}
		table.Append([]string{name, state, utils.FormatDuration(res.Duration), detail})
	}
	table.Render()
	fmt.Fprintf(w, "Run %s finished in %s\n", report.RunID, utils.FormatDuration(report.Finished.Sub(report.Started)))
}

func writeDOT(path string, g render.Graph) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	if err := render.WriteDOT(f, "maestro", g); err != nil {
		f.Close()
		return fmt.Errorf("write graph: %w", err)
	}
	return f.Close()
}

// newCmdRun creates the `run` command.
func newCmdRun(global *globalOptions) *cobra.Command {
	o := newRunOptions(global)

	command := &cobra.Command{
		Use:   "run",
		Short: "Run every task of a task file in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd)
		},
	}

	o.addFlags(command)
	return command
}
