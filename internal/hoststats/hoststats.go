// Package hoststats periodically samples ambient host CPU and memory
// usage and logs it; the samples are not exported as metrics. It is
// observational only — nothing in
// this repository uses these samples to reject connections, throttle
// sends, or otherwise gate behavior; backpressure is an explicit non-goal.
package hoststats

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one CPU/memory reading.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Run samples host stats every interval and logs them until ctx is
// canceled. It never returns an error to its caller: a sampling failure
// (e.g. unsupported platform) is logged at warn and skipped for that tick.
func Run(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := sample()
			if err != nil {
				log.Warn().Err(err).Msg("host stats sampling failed")
				continue
			}
			log.Debug().
				Float64("cpu_percent", s.CPUPercent).
				Float64("mem_percent", s.MemoryPercent).
				Msg("host stats")
		}
	}
}

func sample() (Sample, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return Sample{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}

	return Sample{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}
