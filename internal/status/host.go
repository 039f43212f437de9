package status

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/process"
)

// HostProbe collects HostInfo for the running process.
type HostProbe struct {
	proc *process.Process
}

// NewHostProbe creates a probe for the current process.
func NewHostProbe() (*HostProbe, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}
	return &HostProbe{proc: p}, nil
}

// Collect reads host and process information. Fields that cannot be read are
// left empty; an error is returned only if nothing could be read.
func (h *HostProbe) Collect() (*HostInfo, error) {
	info := &HostInfo{}

	hi, hostErr := host.Info()
	if hostErr == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform
		info.KernelVersion = hi.KernelVersion
		info.HostUptime = time.Duration(hi.Uptime) * time.Second
	}

	cpu, cpuErr := h.proc.CPUPercent()
	if cpuErr == nil {
		info.CPUPercent = cpu
	}

	mem, memErr := h.proc.MemoryInfo()
	if memErr == nil {
		info.RSSBytes = mem.RSS
	}

	if hostErr != nil && cpuErr != nil && memErr != nil {
		return nil, fmt.Errorf("collect host info: %w", hostErr)
	}
	return info, nil
}
