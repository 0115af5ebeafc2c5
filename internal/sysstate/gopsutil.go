package sysstate

import "github.com/shirou/gopsutil/v4/host"

// GopsutilHost implements HostProvider using gopsutil.
type GopsutilHost struct{}

// NewGopsutilHost creates a new gopsutil-based host provider.
func NewGopsutilHost() *GopsutilHost {
	return &GopsutilHost{}
}

// BootTimeUnix returns the host's boot time as reported by the kernel.
func (g *GopsutilHost) BootTimeUnix() (uint64, error) {
	return host.BootTime()
}
