package worker

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemProbe reports current host pressure. Split out so tests can fake it.
type SystemProbe interface {
	FreeMemoryRatio() (float64, error)
	LoadAverage() (float64, error)
	NumCPU() int
}

type gopsutilProbe struct{}

func NewSystemProbe() SystemProbe { return gopsutilProbe{} }

func (gopsutilProbe) FreeMemoryRatio() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	if vm.Total == 0 {
		return 0, nil
	}
	return float64(vm.Available) / float64(vm.Total), nil
}

func (gopsutilProbe) LoadAverage() (float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}

func (gopsutilProbe) NumCPU() int { return runtime.NumCPU() }

const lowMemoryRatio = 0.20

// ConcurrencyController sizes one worker iteration. The adjustment is
// monotone decreasing: never above the configured ceiling, never below 1.
type ConcurrencyController struct {
	ceiling int
	probe   SystemProbe
	log     *zerolog.Logger
}

func NewConcurrencyController(ceiling int, probe SystemProbe, logger *zerolog.Logger) *ConcurrencyController {
	if ceiling <= 0 {
		ceiling = 1
	}
	l := logger.With().Str("component", "ConcurrencyController").Logger()
	return &ConcurrencyController{ceiling: ceiling, probe: probe, log: &l}
}

// AllowedParallelism returns how many jobs may be claimed and processed
// concurrently right now. Probe failures leave the ceiling untouched:
// unknown pressure is not treated as high pressure.
func (c *ConcurrencyController) AllowedParallelism() int {
	n := c.ceiling

	if free, err := c.probe.FreeMemoryRatio(); err == nil {
		if free < lowMemoryRatio {
			n /= 2
			if n < 1 {
				n = 1
			}
			c.log.Debug().Float64("free_ratio", free).Int("allowance", n).Msg("memory pressure, halving allowance")
		}
	} else {
		c.log.Warn().Err(err).Msg("memory probe failed")
	}

	if avg, err := c.probe.LoadAverage(); err == nil {
		if avg > float64(c.probe.NumCPU()) {
			n--
			if n < 1 {
				n = 1
			}
			c.log.Debug().Float64("load1", avg).Int("allowance", n).Msg("load pressure, reducing allowance")
		}
	} else {
		c.log.Warn().Err(err).Msg("load probe failed")
	}

	return n
}
