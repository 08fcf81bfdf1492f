package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
	"github.com/ZanzyTHEbar/maestro/internal/ports"
)

const (
	defaultQueueSize       = 100
	defaultMonitorInterval = 10 * time.Second
	defaultCooldownPeriod  = 1 * time.Minute // Cooldown after scaling down
	minWorkers             = 1
	cpuLowThreshold        = 0.5 // Threshold to consider scaling down
)

// ErrPoolStopped is returned when submitting to a stopped pool.
var ErrPoolStopped = errors.New("worker pool stopped")

var _ ports.TaskExecutor = (*WorkerPool)(nil)

// WorkerPool manages a pool of goroutines to execute Runnable jobs.
// Jobs are dequeued in submission order.
type WorkerPool struct {
	minWorkers      int
	maxWorkers      int
	currentWorkers  int                  // Current number of active workers
	nextID          int                  // Id given to the next started worker
	workerQueue     chan domain.Runnable // Channel to send jobs to workers
	retire          chan struct{}        // One token per worker asked to exit
	stopChan        chan struct{}        // Channel to signal workers and monitor to stop
	wg              sync.WaitGroup       // To wait for workers to finish
	monitorGroup    errgroup.Group       // Lifetime of the size monitor
	monitor         *LoadMonitor         // System load monitor
	monitorInterval time.Duration        // How often to check load
	cooldown        time.Duration        // Pause between two scale downs
	cooldownUntil   time.Time            // Time until scaling down is allowed again
	monitorRunning  bool                 // Flag to track if monitor is active
	stopped         bool
	logger          zerolog.Logger

	mu sync.Mutex // Protects currentWorkers, nextID, cooldownUntil, monitorRunning, stopped
}

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithLogger sets the pool logger.
func WithLogger(l zerolog.Logger) Option {
	return func(wp *WorkerPool) { wp.logger = l }
}

// WithMonitorInterval sets how often the monitor checks load.
func WithMonitorInterval(d time.Duration) Option {
	return func(wp *WorkerPool) {
		if d > 0 {
			wp.monitorInterval = d
		}
	}
}

// WithCooldown sets the minimum delay between two scale downs.
func WithCooldown(d time.Duration) Option {
	return func(wp *WorkerPool) {
		if d >= 0 {
			wp.cooldown = d
		}
	}
}

// NewWorkerPool creates a new WorkerPool with adaptive sizing.
func NewWorkerPool(initialWorkers, minPoolWorkers, maxPoolWorkers int, queueSize int, monitor *LoadMonitor, opts ...Option) (*WorkerPool, error) {
	if minPoolWorkers <= 0 {
		minPoolWorkers = minWorkers
	}
	if maxPoolWorkers <= 0 {
		maxPoolWorkers = runtime.NumCPU() * 4
	}
	if minPoolWorkers > maxPoolWorkers {
		return nil, fmt.Errorf("min workers (%d) exceeds max workers (%d)", minPoolWorkers, maxPoolWorkers)
	}
	if initialWorkers <= 0 {
		initialWorkers = runtime.NumCPU()
	}
	initialWorkers = min(max(initialWorkers, minPoolWorkers), maxPoolWorkers)
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if monitor == nil {
		monitor = NewLoadMonitor(0.8, 0.9)
	}

	pool := &WorkerPool{
		minWorkers:      minPoolWorkers,
		maxWorkers:      maxPoolWorkers,
		workerQueue:     make(chan domain.Runnable, queueSize),
		retire:          make(chan struct{}, maxPoolWorkers),
		stopChan:        make(chan struct{}),
		monitor:         monitor,
		monitorInterval: defaultMonitorInterval,
		cooldown:        defaultCooldownPeriod,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.logger.Info().
		Int("min", minPoolWorkers).
		Int("max", maxPoolWorkers).
		Int("initial", initialWorkers).
		Int("queue", queueSize).
		Msg("Initializing worker pool")

	pool.mu.Lock()
	for i := 0; i < initialWorkers; i++ {
		pool.startWorker()
	}
	pool.mu.Unlock()

	return pool, nil
}

// startWorker launches a new worker goroutine.
// Assumes mu lock is held by the caller.
func (wp *WorkerPool) startWorker() {
	wp.currentWorkers++
	wp.nextID++
	wp.wg.Add(1)
	go wp.worker(wp.nextID)
}

// Add submits a job to the worker pool queue, blocking while the queue is full.
func (wp *WorkerPool) Add(job domain.Runnable) error {
	if job == nil {
		return errors.New("nil job")
	}
	select {
	case <-wp.stopChan:
		return ErrPoolStopped
	default:
	}
	select {
	case wp.workerQueue <- job:
		return nil
	case <-wp.stopChan:
		wp.logger.Warn().Msg("Worker pool stopped, job not added")
		return ErrPoolStopped
	}
}

// TryAdd attempts to submit a job without blocking.
func (wp *WorkerPool) TryAdd(job domain.Runnable) bool {
	if job == nil {
		return false
	}
	select {
	case <-wp.stopChan:
		return false
	default:
	}
	select {
	case wp.workerQueue <- job:
		return true
	default:
		return false // Queue full
	}
}

// worker is the execution loop for a single worker goroutine.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	for {
		select {
		case job := <-wp.workerQueue:
			wp.run(id, job)
		case <-wp.retire:
			wp.logger.Debug().Int("worker", id).Msg("Worker retired")
			return
		case <-wp.stopChan:
			wp.drain(id)
			return
		}
	}
}

// drain runs the jobs still queued when the pool stops.
func (wp *WorkerPool) drain(id int) {
	for {
		select {
		case job := <-wp.workerQueue:
			wp.run(id, job)
		default:
			return
		}
	}
}

func (wp *WorkerPool) run(id int, job domain.Runnable) {
	if err := job.Run(); err != nil {
		wp.logger.Error().Err(err).Int("worker", id).Msg("Error running job")
	}
}

// Start implements the ports.TaskExecutor interface.
// It starts the pool's monitor if it's not already running.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrPoolStopped
	}
	if wp.monitorRunning {
		return fmt.Errorf("worker pool monitor already started")
	}

	wp.monitorRunning = true
	wp.monitorGroup.Go(wp.adjustSizeLoop)
	wp.logger.Info().Dur("interval", wp.monitorInterval).Msg("Worker pool monitor started")
	return nil
}

// adjustSizeLoop periodically checks system load and adjusts the worker count.
func (wp *WorkerPool) adjustSizeLoop() error {
	ticker := time.NewTicker(wp.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wp.adjustSize()
		case <-wp.stopChan:
			wp.logger.Debug().Msg("Worker pool monitor stopping")
			return nil
		}
	}
}

// adjustSize performs the logic for scaling the worker pool up or down.
func (wp *WorkerPool) adjustSize() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return
	}

	cpuUsage := wp.monitor.GetCPUUsage()
	memUsage := wp.monitor.GetMemUsage()
	queueLength := len(wp.workerQueue)
	capacity := cap(wp.workerQueue)
	queueUsage := 0.0
	if capacity > 0 {
		queueUsage = float64(queueLength) / float64(capacity)
	}

	// Scale up
	scaleUpThresholdMet := cpuUsage > wp.monitor.GetCPUThreshold() || memUsage > wp.monitor.GetMemThreshold()
	scaleUpNeeded := scaleUpThresholdMet || (queueUsage > 0.75)
	if scaleUpNeeded && wp.currentWorkers < wp.maxWorkers {
		wp.logger.Info().
			Float64("cpu", cpuUsage).
			Float64("mem", memUsage).
			Float64("queue", queueUsage).
			Msgf("Scaling up: workers %d->%d", wp.currentWorkers, wp.currentWorkers+1)
		wp.startWorker()
		return
	}

	// Scale down, one worker per cooldown period
	if time.Now().Before(wp.cooldownUntil) {
		return
	}
	scaleDownThresholdMet := cpuUsage < cpuLowThreshold && queueUsage < 0.1
	if scaleDownThresholdMet && wp.currentWorkers > wp.minWorkers {
		wp.logger.Info().
			Float64("cpu", cpuUsage).
			Float64("queue", queueUsage).
			Msgf("Scaling down: workers %d->%d", wp.currentWorkers, wp.currentWorkers-1)
		wp.currentWorkers--
		wp.retire <- struct{}{}
		wp.cooldownUntil = time.Now().Add(wp.cooldown)
	}
}

// Stop implements the ports.TaskExecutor interface.
// Signals shutdown, lets workers finish queued jobs and waits for them and the monitor.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.logger.Info().Int("workers", wp.currentWorkers).Msg("Worker pool stopping")
	close(wp.stopChan)
	wp.mu.Unlock()

	wp.wg.Wait()
	_ = wp.monitorGroup.Wait()

	wp.mu.Lock()
	wp.monitorRunning = false
	wp.mu.Unlock()

	wp.logger.Info().Msg("Worker pool stopped")
}

// GetCurrentWorkers returns the current number of active worker goroutines.
func (wp *WorkerPool) GetCurrentWorkers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.currentWorkers
}

// QueueLength returns the number of jobs waiting for a worker.
func (wp *WorkerPool) QueueLength() int {
	return len(wp.workerQueue)
}
