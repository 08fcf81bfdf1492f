package main

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/maestro/internal/adapters/kinds"
	"github.com/ZanzyTHEbar/maestro/internal/adapters/taskfile"
	"github.com/ZanzyTHEbar/maestro/internal/adapters/workerpool"
	"github.com/ZanzyTHEbar/maestro/internal/config"
	"github.com/ZanzyTHEbar/maestro/internal/domain"
	"github.com/ZanzyTHEbar/maestro/internal/logging"
)

// globalOptions holds the flags shared by every command and the state
// derived from them.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger zerolog.Logger
}

func newGlobalOptions() *globalOptions {
	return &globalOptions{logger: zerolog.Nop()}
}

// addFlags binds the persistent flags to the root command.
func (o *globalOptions) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.configFile, "config", "maestro.json", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "Log format: console or json (overrides config)")
}

// complete loads the configuration, with flags overriding the
// environment, which overrides the file, and builds the logger.
func (o *globalOptions) complete(cmd *cobra.Command) error {
	cfg, err := config.LoadFromFile(o.configFile)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.System.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.System.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.System.LogLevel, cfg.System.LogFormat)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

// registry builds the kind registry with the configured task timeout.
func (o *globalOptions) registry() (*kinds.Registry, error) {
	taskTimeout, err := o.cfg.TaskTimeout()
	if err != nil {
		return nil, err
	}
	client := resty.New().SetLogger(restyLogger{o.logger})
	return kinds.NewDefaultRegistry(o.logger, client).WithDefaultTimeout(taskTimeout), nil
}

// loadTasks parses, validates and builds the tasks of a task file.
func (o *globalOptions) loadTasks(path, format string) ([]*domain.Task, error) {
	f, err := taskfile.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	descs, err := taskfile.Load(path, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reg, err := o.registry()
	if err != nil {
		return nil, err
	}
	tasks, err := domain.BuildTasks(descs, reg.Resolve)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// newPool builds and starts the worker pool described by the configuration.
// workers, when positive, overrides the initial and maximum worker count.
func (o *globalOptions) newPool(workers int) (*workerpool.WorkerPool, error) {
	wp := o.cfg.WorkerPool
	if workers > 0 {
		wp.InitialWorkers = workers
		wp.MinWorkers = min(wp.MinWorkers, workers)
		wp.MaxWorkers = workers
	}
	interval, err := o.cfg.MonitorInterval()
	if err != nil {
		return nil, err
	}

	monitor := workerpool.NewLoadMonitor(wp.CPUThreshold, wp.MemThreshold).WithLogger(o.logger)
	pool, err := workerpool.NewWorkerPool(wp.InitialWorkers, wp.MinWorkers, wp.MaxWorkers, wp.QueueSize, monitor,
		workerpool.WithLogger(o.logger),
		workerpool.WithMonitorInterval(interval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	if err := pool.Start(); err != nil {
		pool.Stop()
		return nil, err
	}
	return pool, nil
}

// restyLogger routes resty's diagnostics to zerolog.
type restyLogger struct {
	l zerolog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
