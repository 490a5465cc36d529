package sysinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/toolrun"
)

type fakeRunner map[string]toolrun.Result

func (f fakeRunner) Run(_ context.Context, _ time.Duration, argv ...string) toolrun.Result {
	if res, ok := f[argv[0]]; ok {
		return res
	}
	return toolrun.Result{Err: errors.New("not found")}
}

const vmStatOutput = `Mach Virtual Memory Statistics: (page size of 16384 bytes)
Pages free:                               65536.
Pages active:                            400000.
Pages inactive:                          390000.
`

func TestParsePressure(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"The system has 17179869184 (1048576 pages with a page size of 16384).\nSystem memory pressure level: Normal", PressureNormal},
		{"pressure: WARN", PressureWarning},
		{"state is critical", PressureCritical},
		{"", PressureUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePressure(tt.text), tt.text)
	}
}

func TestParseVMStat(t *testing.T) {
	free, ok := ParseVMStat(vmStatOutput)
	require.True(t, ok)
	assert.Equal(t, uint64(1024), free)

	free, ok = ParseVMStat("Mach Virtual Memory Statistics: (page size of 4096 bytes)\nPages free: 512.\n")
	require.True(t, ok)
	assert.Equal(t, uint64(2), free)

	free, ok = ParseVMStat("Pages free: 128.\n")
	require.True(t, ok)
	assert.Equal(t, uint64(2), free)

	_, ok = ParseVMStat("nothing useful")
	assert.False(t, ok)
}

func TestMemory_PlatformTools(t *testing.T) {
	runner := fakeRunner{
		"memory_pressure": {Started: true, Success: true, Stdout: "System-wide memory free percentage: 40%\nlevel: normal\n"},
		"vm_stat":         {Started: true, Success: true, Stdout: vmStatOutput},
	}
	info := Memory(context.Background(), runner, zap.NewNop())
	assert.Equal(t, PressureNormal, info.PressureLevel)
	assert.Equal(t, uint64(1024), info.FreeMemoryMB)
	assert.Equal(t, "memory_pressure+vm_stat", info.Source)
}

func TestMemory_VMStatOnly(t *testing.T) {
	runner := fakeRunner{"vm_stat": {Started: true, Success: true, Stdout: vmStatOutput}}
	info := Memory(context.Background(), runner, zap.NewNop())
	assert.Equal(t, PressureUnknown, info.PressureLevel)
	assert.Equal(t, "vm_stat", info.Source)
}

func TestMemory_HostFallback(t *testing.T) {
	if _, err := mem.VirtualMemory(); err != nil {
		t.Skipf("host memory stats unavailable: %v", err)
	}
	info := Memory(context.Background(), fakeRunner{}, zap.NewNop())
	assert.Equal(t, "gopsutil", info.Source)
	assert.Contains(t, []string{PressureNormal, PressureWarning, PressureCritical}, info.PressureLevel)
}

func TestFromVirtualMemory(t *testing.T) {
	tests := []struct {
		used float64
		want string
	}{
		{50, PressureNormal},
		{80, PressureWarning},
		{97, PressureCritical},
	}
	for _, tt := range tests {
		info := fromVirtualMemory(&mem.VirtualMemoryStat{UsedPercent: tt.used, Available: 3 * mb})
		assert.Equal(t, tt.want, info.PressureLevel)
		assert.Equal(t, uint64(3), info.FreeMemoryMB)
	}
}

func TestHost(t *testing.T) {
	hostname, release := Host()
	assert.NotEmpty(t, hostname)
	assert.NotEmpty(t, release)
}

func TestKernelTracing(t *testing.T) {
	c := KernelTracing()
	assert.Equal(t, TracingFacility, c.Facility)
	if !c.Available {
		assert.NotEmpty(t, c.Reason)
	}
}
