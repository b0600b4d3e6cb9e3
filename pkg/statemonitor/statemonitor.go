package statemonitor

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSnapshot captures the controlled machine's load at a point in time.
// It is recorded with the session audit row for post-hoc diagnostics.
type HostSnapshot struct {
	ProcessCount int     `json:"process_count"`
	CPUUsage     float64 `json:"cpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
}

// Snapshot reads the current host state.
func Snapshot() (*HostSnapshot, error) {
	processes, err := process.Processes()
	if err != nil {
		return nil, err
	}

	cpuUsages, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	var cpuUsage float64
	if len(cpuUsages) > 0 {
		cpuUsage = cpuUsages[0]
	}

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	return &HostSnapshot{
		ProcessCount: len(processes),
		CPUUsage:     cpuUsage,
		MemoryUsage:  vmStat.UsedPercent,
	}, nil
}
