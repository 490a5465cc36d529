package sysinfo

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
)

const (
	memoryToolTimeout = 5 * time.Second
	defaultPageSize   = 16384
	mb                = 1024 * 1024

	PressureUnknown  = "unknown"
	PressureNormal   = "normal"
	PressureWarning  = "warning"
	PressureCritical = "critical"
)

var firstNumber = regexp.MustCompile(`(\d+)`)

// ParsePressure maps memory_pressure output to a pressure level. The first
// of normal, warn, critical found in the text wins.
func ParsePressure(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "normal"):
		return PressureNormal
	case strings.Contains(lower, "warn"):
		return PressureWarning
	case strings.Contains(lower, "critical"):
		return PressureCritical
	default:
		return PressureUnknown
	}
}

// ParseVMStat returns free memory in MB from vm_stat output. The page size
// is taken from the header and defaults to 16 KiB.
func ParseVMStat(text string) (uint64, bool) {
	pageSize := uint64(defaultPageSize)
	var free uint64
	found := false

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(strings.ToLower(line), "page size"):
			if n, ok := leadingNumber(line); ok {
				pageSize = n
			}
		case strings.Contains(line, "Pages free"):
			if n, ok := leadingNumber(line); ok {
				free = n
				found = true
			}
		}
	}
	if !found {
		return 0, false
	}
	return free * pageSize / mb, true
}

func leadingNumber(line string) (uint64, bool) {
	m := firstNumber.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	return n, err == nil
}

// Memory returns the system memory snapshot. Platform tools are tried
// first; when neither produced anything the host's virtual memory stats
// are used instead.
func Memory(ctx context.Context, runner toolrun.Runner, logger *zap.Logger) model.MemoryInfo {
	info := model.MemoryInfo{PressureLevel: PressureUnknown}
	var sources []string

	if res := runner.Run(ctx, memoryToolTimeout, "memory_pressure"); res.Success {
		info.PressureLevel = ParsePressure(res.Stdout)
		sources = append(sources, "memory_pressure")
	}
	if res := runner.Run(ctx, memoryToolTimeout, "vm_stat"); res.Success {
		if free, ok := ParseVMStat(res.Stdout); ok {
			info.FreeMemoryMB = free
			sources = append(sources, "vm_stat")
		}
	}
	if len(sources) > 0 {
		info.Source = strings.Join(sources, "+")
		return info
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		logger.Warn("memory statistics unavailable", zap.Error(err))
		return info
	}
	return fromVirtualMemory(vm)
}

// fromVirtualMemory derives a pressure level from used memory percentage.
func fromVirtualMemory(vm *mem.VirtualMemoryStat) model.MemoryInfo {
	level := PressureNormal
	switch {
	case vm.UsedPercent >= 95:
		level = PressureCritical
	case vm.UsedPercent >= 80:
		level = PressureWarning
	}
	return model.MemoryInfo{
		PressureLevel: level,
		FreeMemoryMB:  vm.Available / mb,
		Source:        "gopsutil",
	}
}
