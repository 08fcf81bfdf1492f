package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/ZanzyTHEbar/maestro/internal/domain/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type jobFunc func() error

func (f jobFunc) Run() error { return f() }

func fixed(v float64) Probe {
	return func() (float64, error) { return v, nil }
}

func TestNewWorkerPool(t *testing.T) {
	_, err := NewWorkerPool(2, 5, 3, 10, nil)
	require.Error(t, err)

	wp, err := NewWorkerPool(10, 1, 3, 0, nil)
	require.NoError(t, err)
	defer wp.Stop()
	assert.Equal(t, 3, wp.GetCurrentWorkers())
}

func TestWorkerPool_RunsJobs(t *testing.T) {
	wp, err := NewWorkerPool(4, 1, 4, 16, nil)
	require.NoError(t, err)

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, wp.Add(jobFunc(func() error {
			defer wg.Done()
			n.Add(1)
			return nil
		})))
	}
	wg.Wait()
	wp.Stop()
	assert.EqualValues(t, 50, n.Load())
}

func TestWorkerPool_SingleWorkerIsFIFO(t *testing.T) {
	wp, err := NewWorkerPool(1, 1, 1, 32, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		require.NoError(t, wp.Add(jobFunc(func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})))
	}
	wp.Stop()

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestWorkerPool_StopDrainsQueue(t *testing.T) {
	wp, err := NewWorkerPool(1, 1, 1, 8, nil)
	require.NoError(t, err)

	release := make(chan struct{})
	var ran atomic.Int32
	require.NoError(t, wp.Add(jobFunc(func() error {
		<-release
		ran.Add(1)
		return nil
	})))
	for i := 0; i < 5; i++ {
		require.NoError(t, wp.Add(jobFunc(func() error {
			ran.Add(1)
			return nil
		})))
	}

	stopped := make(chan struct{})
	go func() {
		wp.Stop()
		close(stopped)
	}()
	close(release)
	<-stopped

	assert.EqualValues(t, 6, ran.Load())
}

func TestWorkerPool_AddAfterStop(t *testing.T) {
	wp, err := NewWorkerPool(1, 1, 1, 1, nil)
	require.NoError(t, err)
	wp.Stop()
	wp.Stop()

	require.ErrorIs(t, wp.Add(jobFunc(func() error { return nil })), ErrPoolStopped)
	assert.False(t, wp.TryAdd(jobFunc(func() error { return nil })))
	require.ErrorIs(t, wp.Start(), ErrPoolStopped)
	assert.Error(t, wp.Add(nil))
}

func TestWorkerPool_TryAddFullQueue(t *testing.T) {
	wp, err := NewWorkerPool(1, 1, 1, 1, nil)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, wp.Add(jobFunc(func() error {
		close(started)
		<-release
		return nil
	})))
	<-started

	assert.True(t, wp.TryAdd(jobFunc(func() error { return nil })))
	assert.False(t, wp.TryAdd(jobFunc(func() error { return nil })))
	assert.Equal(t, 1, wp.QueueLength())

	close(release)
	wp.Stop()
}

func TestWorkerPool_JobErrorDoesNotKillWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockRunnable(ctrl)
	failing.EXPECT().Run().Return(errors.New("boom"))

	wp, err := NewWorkerPool(1, 1, 1, 4, nil)
	require.NoError(t, err)
	require.NoError(t, wp.Add(failing))

	done := make(chan struct{})
	require.NoError(t, wp.Add(jobFunc(func() error {
		close(done)
		return nil
	})))
	<-done
	wp.Stop()
}

func TestWorkerPool_ScaleUpOnLoad(t *testing.T) {
	monitor := NewLoadMonitor(0.8, 0.9).WithProbes(fixed(0.95), fixed(0.1))
	wp, err := NewWorkerPool(1, 1, 3, 10, monitor)
	require.NoError(t, err)
	defer wp.Stop()

	wp.adjustSize()
	wp.adjustSize()
	wp.adjustSize()
	assert.Equal(t, 3, wp.GetCurrentWorkers())
}

func TestWorkerPool_ScaleDownWithCooldown(t *testing.T) {
	monitor := NewLoadMonitor(0.8, 0.9).WithProbes(fixed(0.1), fixed(0.1))
	wp, err := NewWorkerPool(3, 1, 3, 10, monitor, WithCooldown(time.Hour))
	require.NoError(t, err)
	defer wp.Stop()

	wp.adjustSize()
	assert.Equal(t, 2, wp.GetCurrentWorkers())

	// Still cooling down.
	wp.adjustSize()
	assert.Equal(t, 2, wp.GetCurrentWorkers())
}

func TestWorkerPool_ScaleDownStopsAtMin(t *testing.T) {
	monitor := NewLoadMonitor(0.8, 0.9).WithProbes(fixed(0.1), fixed(0.1))
	wp, err := NewWorkerPool(2, 2, 4, 10, monitor, WithCooldown(0))
	require.NoError(t, err)
	defer wp.Stop()

	wp.adjustSize()
	assert.Equal(t, 2, wp.GetCurrentWorkers())
}

func TestWorkerPool_MonitorLoop(t *testing.T) {
	monitor := NewLoadMonitor(0.8, 0.9).WithProbes(fixed(0.99), fixed(0.1))
	wp, err := NewWorkerPool(1, 1, 2, 10, monitor, WithMonitorInterval(5*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, wp.Start())
	require.Error(t, wp.Start())

	assert.Eventually(t, func() bool { return wp.GetCurrentWorkers() == 2 }, time.Second, 5*time.Millisecond)
	wp.Stop()
}

func TestLoadMonitor_ProbeFailure(t *testing.T) {
	broken := func() (float64, error) { return 0, errors.New("unavailable") }
	monitor := NewLoadMonitor(0.7, 0.6).WithProbes(broken, broken)

	assert.InDelta(t, fallbackUsage, monitor.GetCPUUsage(), 1e-9)
	assert.InDelta(t, fallbackUsage, monitor.GetMemUsage(), 1e-9)
	assert.InDelta(t, 0.7, monitor.GetCPUThreshold(), 1e-9)
	assert.InDelta(t, 0.6, monitor.GetMemThreshold(), 1e-9)
}
