package diagnose

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
)

func issues(ds []model.Diagnosis) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Issue)
	}
	return out
}

func TestClassifySample(t *testing.T) {
	th := config.DefaultThresholds()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"quiet", "main (in node)\n", []string{}},
		{"fsevents", "FSEventStreamStart  FSEvents watcher\n", []string{"FSEvents Activity"}},
		{"fseventsd", "mach_msg to fseventsd\n", []string{"FSEvents Activity"}},
		{"polling at bound", strings.Repeat("kevent\n", 50), []string{}},
		{"polling above bound", strings.Repeat("kevent\n", 51), []string{"High Polling Activity"}},
		{"poll alone", strings.Repeat("poll\n", 51), []string{"High Polling Activity"}},
		{"gc", "v8::internal::Scavenge\n", []string{"Garbage Collection Pressure"}},
		{"crypto", "SSL_read\n", []string{"Cryptographic Operations"}},
		{"run loop at bound", strings.Repeat("CFRunLoopRun\n", 100), []string{}},
		{"run loop above bound", strings.Repeat("CFRunLoopRun\n", 101), []string{"CFRunLoop Spinning"}},
		{
			"several",
			"FSEvents\nMarkCompact\nTLS\n" + strings.Repeat("__CFRunLoopServiceMachPort\n", 101),
			[]string{"FSEvents Activity", "Garbage Collection Pressure", "Cryptographic Operations", "CFRunLoop Spinning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, issues(ClassifySample(tt.text, th)))
		})
	}
}

func TestClassifySample_Severities(t *testing.T) {
	ds := ClassifySample("CRYPTO FSEvents "+strings.Repeat("poll ", 60), config.DefaultThresholds())
	sev := map[string]model.Severity{}
	for _, d := range ds {
		sev[d.Issue] = d.Severity
		assert.NotEmpty(t, d.Description)
		assert.NotEmpty(t, d.Remedy)
	}
	assert.Equal(t, model.SeverityMedium, sev["FSEvents Activity"])
	assert.Equal(t, model.SeverityHigh, sev["High Polling Activity"])
	assert.Equal(t, model.SeverityLow, sev["Cryptographic Operations"])
}

func TestClassifyDescriptors(t *testing.T) {
	th := config.DefaultThresholds()

	assert.Empty(t, ClassifyDescriptors(1000, 100, th))

	ds := ClassifyDescriptors(1001, 0, th)
	require.Len(t, ds, 1)
	assert.Equal(t, "High File Descriptor Count", ds[0].Issue)
	assert.Equal(t, model.SeverityHigh, ds[0].Severity)
	assert.Equal(t, "Process has 1001 open file descriptors", ds[0].Description)

	ds = ClassifyDescriptors(10, 101, th)
	require.Len(t, ds, 1)
	assert.Equal(t, "Excessive File Watching", ds[0].Issue)
	assert.Equal(t, "Watching 101 paths", ds[0].Description)
}

func TestClassifyDescriptors_CustomThresholds(t *testing.T) {
	th := config.DefaultThresholds()
	th.OpenDescriptors = 10
	assert.Equal(t, []string{"High File Descriptor Count"}, issues(ClassifyDescriptors(11, 0, th)))
}

func TestClassifySyscalls_EventLoop(t *testing.T) {
	th := config.DefaultThresholds()

	atBound := []model.SyscallRecord{
		{Name: "kevent", Count: 600},
		{Name: "poll", Count: 300},
		{Name: "select", Count: 100},
	}
	assert.Empty(t, ClassifySyscalls(atBound, th))

	over := append(atBound, model.SyscallRecord{Name: "kevent64", Count: 1})
	ds := ClassifySyscalls(over, th)
	require.Len(t, ds, 1)
	assert.Equal(t, "Event Loop Spinning", ds[0].Issue)
	assert.Equal(t, model.SeverityHigh, ds[0].Severity)
}

func TestClassifySyscalls_IOErrors(t *testing.T) {
	th := config.DefaultThresholds()

	summary := []model.SyscallRecord{
		{Name: "read", Count: 500, Errors: 60},
		{Name: "open", Count: 200, Errors: 41},
		{Name: "connect", Count: 300, Errors: 300},
	}
	assert.Equal(t, []string{"High I/O Error Rate"}, issues(ClassifySyscalls(summary, th)))

	summary[1].Errors = 40
	assert.Empty(t, ClassifySyscalls(summary, th))
}

func TestClassifySyscalls_SlowSyscall(t *testing.T) {
	th := config.DefaultThresholds()

	summary := []model.SyscallRecord{
		{Name: "fsync", Count: 11, TotalTimeUS: 11 * 10_001, AvgTimeUS: 10_001},
		{Name: "read", Count: 10, TotalTimeUS: 10 * 50_000, AvgTimeUS: 50_000},
		{Name: "write", Count: 20, TotalTimeUS: 20 * 10_000, AvgTimeUS: 10_000},
	}
	ds := ClassifySyscalls(summary, th)
	require.Len(t, ds, 1)
	assert.Equal(t, "Slow Syscall: fsync", ds[0].Issue)
	assert.Equal(t, model.SeverityMedium, ds[0].Severity)

	th.SlowSyscallLatency = time.Millisecond
	assert.Equal(t, []string{"Slow Syscall: fsync", "Slow Syscall: write"}, issues(ClassifySyscalls(summary, th)))
}

func TestClassifySyscalls_FileOperations(t *testing.T) {
	th := config.DefaultThresholds()

	summary := []model.SyscallRecord{
		{Name: "stat64", Count: 3000},
		{Name: "lstat", Count: 2000},
	}
	assert.Empty(t, ClassifySyscalls(summary, th))

	summary = append(summary, model.SyscallRecord{Name: "access", Count: 1})
	assert.Equal(t, []string{"Excessive File Operations"}, issues(ClassifySyscalls(summary, th)))
}

func TestClassifySyscalls_Empty(t *testing.T) {
	assert.Empty(t, ClassifySyscalls(nil, config.DefaultThresholds()))
}

func TestFallbackNotice(t *testing.T) {
	d := FallbackNotice("operation not permitted")
	assert.Equal(t, "Fallback Tracer Used", d.Issue)
	assert.Equal(t, model.SeverityLow, d.Severity)
	assert.Contains(t, d.Description, "operation not permitted")

	assert.NotContains(t, FallbackNotice("").Description, "()")
}
