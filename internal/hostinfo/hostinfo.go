// Package hostinfo fingerprints the machine a benchmark ran on.
package hostinfo

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/models"
)

// Collect gathers what it can; a probe that fails leaves its fields empty.
func Collect(ctx context.Context, log *logrus.Entry) *models.HostInfo {
	info := &models.HostInfo{}

	if h, err := host.InfoWithContext(ctx); err != nil {
		log.WithError(err).Debug("host info unavailable")
	} else {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}

	if cpus, err := cpu.InfoWithContext(ctx); err != nil {
		log.WithError(err).Debug("cpu info unavailable")
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.WithError(err).Debug("memory info unavailable")
	} else {
		info.MemoryMB = float64(vm.Total) / (1024 * 1024)
	}

	return info
}
