package workerpool

import (
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Probe returns a resource usage fraction in [0, 1].
type Probe func() (float64, error)

// fallbackUsage is reported when a probe fails, so a broken probe never
// triggers scaling on its own.
const fallbackUsage = 0.5

// CPUProbe reads overall CPU usage since the previous call.
func CPUProbe() (float64, error) {
	percent, err := cpu.Percent(0, false)
	if err != nil || len(percent) == 0 {
		return fallbackUsage, err
	}
	return percent[0] / 100.0, nil
}

// MemProbe reads virtual memory usage.
func MemProbe() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fallbackUsage, err
	}
	return vm.UsedPercent / 100.0, nil
}

// LoadMonitor tracks system resource usage.
type LoadMonitor struct {
	cpuThreshold float64
	memThreshold float64
	cpuProbe     Probe
	memProbe     Probe
	logger       zerolog.Logger
}

// NewLoadMonitor creates a new LoadMonitor with given thresholds, backed
// by gopsutil.
func NewLoadMonitor(cpuThreshold, memThreshold float64) *LoadMonitor {
	return &LoadMonitor{
		cpuThreshold: cpuThreshold,
		memThreshold: memThreshold,
		cpuProbe:     CPUProbe,
		memProbe:     MemProbe,
		logger:       zerolog.Nop(),
	}
}

// WithProbes replaces the usage probes. Nil probes keep the current ones.
func (lm *LoadMonitor) WithProbes(cpuProbe, memProbe Probe) *LoadMonitor {
	if cpuProbe != nil {
		lm.cpuProbe = cpuProbe
	}
	if memProbe != nil {
		lm.memProbe = memProbe
	}
	return lm
}

// WithLogger sets the logger used to report probe failures.
func (lm *LoadMonitor) WithLogger(l zerolog.Logger) *LoadMonitor {
	lm.logger = l
	return lm
}

// GetCPUUsage returns the current CPU usage fraction (0.0 to 1.0).
func (lm *LoadMonitor) GetCPUUsage() float64 {
	v, err := lm.cpuProbe()
	if err != nil {
		lm.logger.Warn().Err(err).Msg("Error getting CPU usage")
		return fallbackUsage
	}
	return v
}

// GetMemUsage returns the current memory usage fraction (0.0 to 1.0).
func (lm *LoadMonitor) GetMemUsage() float64 {
	v, err := lm.memProbe()
	if err != nil {
		lm.logger.Warn().Err(err).Msg("Error getting memory usage")
		return fallbackUsage
	}
	return v
}

// GetCPUThreshold returns the configured CPU threshold.
func (lm *LoadMonitor) GetCPUThreshold() float64 {
	return lm.cpuThreshold
}

// GetMemThreshold returns the configured Memory threshold.
func (lm *LoadMonitor) GetMemThreshold() float64 {
	return lm.memThreshold
}
