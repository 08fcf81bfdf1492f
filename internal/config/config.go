package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MAESTRO_"

// Config holds all configuration settings for the runner.
type Config struct {
	System     SystemConfig     `json:"system" envPrefix:"SYSTEM_"`
	WorkerPool WorkerPoolConfig `json:"workerPool" envPrefix:"WORKER_POOL_"`
	Runner     RunnerConfig     `json:"runner" envPrefix:"RUNNER_"`
	EventBus   EventBusConfig   `json:"eventBus" envPrefix:"EVENT_BUS_"`
}

// SystemConfig holds general system settings.
type SystemConfig struct {
	LogLevel    string `json:"logLevel" env:"LOG_LEVEL"`       // debug, info, warn, error
	LogFormat   string `json:"logFormat" env:"LOG_FORMAT"`     // console or json
	MetricsFile string `json:"metricsFile" env:"METRICS_FILE"` // Prometheus textfile written after each run; empty disables it
}

// WorkerPoolConfig holds settings for the worker pool.
type WorkerPoolConfig struct {
	InitialWorkers  int     `json:"initialWorkers" env:"INITIAL_WORKERS"`   // Initial number of workers
	MinWorkers      int     `json:"minWorkers" env:"MIN_WORKERS"`           // Minimum number of workers
	MaxWorkers      int     `json:"maxWorkers" env:"MAX_WORKERS"`           // Maximum number of workers
	QueueSize       int     `json:"queueSize" env:"QUEUE_SIZE"`             // Size of the job queue
	CPUThreshold    float64 `json:"cpuThreshold" env:"CPU_THRESHOLD"`       // CPU usage threshold for scaling
	MemThreshold    float64 `json:"memThreshold" env:"MEM_THRESHOLD"`       // Memory usage threshold for scaling
	MonitorInterval string  `json:"monitorInterval" env:"MONITOR_INTERVAL"` // How often load is checked, e.g. "10s"
}

// RunnerConfig holds settings for the orchestrator.
type RunnerConfig struct {
	FailFast    bool   `json:"failFast" env:"FAIL_FAST"`       // Cancel the run on the first failure
	Timeout     string `json:"timeout" env:"TIMEOUT"`          // Bound on the execution phase; empty means none
	TaskTimeout string `json:"taskTimeout" env:"TASK_TIMEOUT"` // Default bound on each task's run hook; empty means none
}

// EventBusConfig holds settings for the event bus.
type EventBusConfig struct {
	DefaultBufferSize int `json:"defaultBufferSize" env:"DEFAULT_BUFFER_SIZE"` // Default buffer size for subscribers
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
		WorkerPool: WorkerPoolConfig{
			InitialWorkers:  runtime.NumCPU(),
			MinWorkers:      1,
			MaxWorkers:      runtime.NumCPU() * 4,
			QueueSize:       100,
			CPUThreshold:    0.8,
			MemThreshold:    0.9,
			MonitorInterval: "10s",
		},
		EventBus: EventBusConfig{
			DefaultBufferSize: 64,
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the
// defaults. A missing file is not an error.
func LoadFromFile(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides settings from MAESTRO_* environment variables, for
// example MAESTRO_WORKER_POOL_MAX_WORKERS or MAESTRO_RUNNER_FAIL_FAST.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(nil)
}

// applyEnv reads from environment when non-nil, from the process otherwise.
func (c *Config) applyEnv(environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}
	return nil
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(filePath string) error {
	data, err := json.Marshal(c, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// RunTimeout parses Runner.Timeout; zero means no bound.
func (c *Config) RunTimeout() (time.Duration, error) {
	return parseDuration("runner.timeout", c.Runner.Timeout)
}

// TaskTimeout parses Runner.TaskTimeout; zero means no bound.
func (c *Config) TaskTimeout() (time.Duration, error) {
	return parseDuration("runner.taskTimeout", c.Runner.TaskTimeout)
}

// MonitorInterval parses WorkerPool.MonitorInterval.
func (c *Config) MonitorInterval() (time.Duration, error) {
	return parseDuration("workerPool.monitorInterval", c.WorkerPool.MonitorInterval)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", field)
	}
	return d, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.System.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel must be one of debug, info, warn, error")
	}
	switch c.System.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("logFormat must be console or json")
	}

	if c.WorkerPool.MinWorkers < 1 {
		return fmt.Errorf("minWorkers must be at least 1")
	}
	if c.WorkerPool.MaxWorkers < c.WorkerPool.MinWorkers {
		return fmt.Errorf("maxWorkers must be greater than or equal to minWorkers")
	}
	if c.WorkerPool.InitialWorkers < c.WorkerPool.MinWorkers || c.WorkerPool.InitialWorkers > c.WorkerPool.MaxWorkers {
		return fmt.Errorf("initialWorkers must be between minWorkers and maxWorkers")
	}
	if c.WorkerPool.QueueSize < 1 {
		return fmt.Errorf("queueSize must be at least 1")
	}
	if c.WorkerPool.CPUThreshold <= 0 || c.WorkerPool.CPUThreshold > 1 {
		return fmt.Errorf("cpuThreshold must be in (0, 1]")
	}
	if c.WorkerPool.MemThreshold <= 0 || c.WorkerPool.MemThreshold > 1 {
		return fmt.Errorf("memThreshold must be in (0, 1]")
	}

	for _, parse := range []func() (time.Duration, error){c.RunTimeout, c.TaskTimeout, c.MonitorInterval} {
		if _, err := parse(); err != nil {
			return err
		}
	}

	if c.EventBus.DefaultBufferSize < 1 {
		return fmt.Errorf("defaultBufferSize must be at least 1")
	}
	return nil
}
