package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
)

func diag(issue string, sev model.Severity) model.Diagnosis {
	return model.Diagnosis{Issue: issue, Severity: sev}
}

func testMeta() Meta {
	return Meta{
		RunID:     "run-1",
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Hostname:  "devbox",
		OSVersion: "24.1.0",
	}
}

func TestBuild_AggregateCPU(t *testing.T) {
	tests := []struct {
		name      string
		cpus      []float64
		wantTotal float64
		wantIssue bool
	}{
		{"over one core", []float64{60, 55}, 115, true},
		{"under one core", []float64{40, 30}, 70, false},
		{"exactly one core", []float64{50, 50}, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var procs []model.ProcessReport
			for i, c := range tt.cpus {
				procs = append(procs, model.ProcessReport{PID: i + 1, CPU: c})
			}
			r := Build(testMeta(), procs, model.SystemInfo{}, config.DefaultThresholds())

			assert.InDelta(t, tt.wantTotal, r.Summary.TotalCPU, 1e-9)
			if tt.wantIssue {
				assert.Contains(t, r.Summary.CriticalIssues, "Aggregate CPU usage (115.0%) exceeds single core")
			} else {
				assert.Empty(t, r.Summary.CriticalIssues)
			}
		})
	}
}

func TestBuild_Promotion(t *testing.T) {
	procs := []model.ProcessReport{
		{
			PID: 10, CPU: 20, Mem: 1.5, RSSMB: 100,
			Sample: &model.SampleResult{Diagnoses: []model.Diagnosis{
				diag("FSEvents Activity", model.SeverityMedium),
				diag("Cryptographic Operations", model.SeverityLow),
				diag("CFRunLoop Spinning", model.SeverityHigh),
			}},
			FileDescriptors: &model.DescriptorResult{Diagnoses: []model.Diagnosis{
				diag("High File Descriptor Count", model.SeverityHigh),
			}},
			Trace: &model.TraceResult{Diagnoses: []model.Diagnosis{
				diag("Slow Syscall: fsync", model.SeverityMedium),
				diag("Fallback Tracer Used", model.SeverityLow),
			}},
			Diagnoses: []model.Diagnosis{diag("Custom Hot", model.SeverityHigh)},
		},
		{
			PID: 20, CPU: 10, Mem: 0.5, RSSMB: 50,
			FileDescriptors: &model.DescriptorResult{Diagnoses: []model.Diagnosis{
				diag("Excessive File Watching", model.SeverityHigh),
			}},
		},
	}

	r := Build(testMeta(), procs, model.SystemInfo{}, config.DefaultThresholds())

	assert.Equal(t, []string{
		"PID 10: CFRunLoop Spinning",
		"PID 10: High File Descriptor Count",
		"PID 10: Custom Hot",
		"PID 20: Excessive File Watching",
	}, r.Summary.CriticalIssues)
	assert.Equal(t, []string{
		"PID 10: FSEvents Activity",
		"PID 10: Slow Syscall: fsync",
	}, r.Summary.Warnings)

	assert.InDelta(t, 30.0, r.Summary.TotalCPU, 1e-9)
	assert.InDelta(t, 2.0, r.Summary.TotalMem, 1e-9)
	assert.Equal(t, uint64(150), r.Summary.TotalRSSMB)
	assert.Equal(t, 2, r.ProcessCount)
}

func TestBuild_PromotionMatchesFindings(t *testing.T) {
	procs := []model.ProcessReport{{
		PID:       1,
		Sample:    &model.SampleResult{Diagnoses: []model.Diagnosis{diag("a", model.SeverityHigh), diag("b", model.SeverityMedium)}},
		Diagnoses: []model.Diagnosis{diag("c", model.SeverityMedium), diag("d", model.SeverityLow)},
	}}
	r := Build(testMeta(), procs, model.SystemInfo{}, config.DefaultThresholds())

	var high, medium int
	for _, p := range r.Processes {
		for _, d := range Findings(p) {
			switch d.Severity {
			case model.SeverityHigh:
				high++
			case model.SeverityMedium:
				medium++
			}
		}
	}
	assert.Len(t, r.Summary.CriticalIssues, high)
	assert.Len(t, r.Summary.Warnings, medium)
}

func TestBuild_Metadata(t *testing.T) {
	mem := model.MemoryInfo{PressureLevel: "normal", FreeMemoryMB: 512, Source: "vm_stat"}
	r := Build(testMeta(), nil, model.SystemInfo{Memory: mem}, config.DefaultThresholds())

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "2026-03-04T05:06:07Z", r.Timestamp)
	assert.Equal(t, "devbox", r.Hostname)
	assert.Equal(t, "24.1.0", r.OSVersion)
	assert.Equal(t, mem, r.System.Memory)
	assert.Zero(t, r.ProcessCount)
	assert.NotNil(t, r.Processes)
	assert.NotNil(t, r.Summary.CriticalIssues)
	assert.NotNil(t, r.Summary.Warnings)
}

func TestBuild_CustomAggregateThreshold(t *testing.T) {
	th := config.DefaultThresholds()
	th.AggregateCPU = 50
	r := Build(testMeta(), []model.ProcessReport{{PID: 1, CPU: 60}}, model.SystemInfo{}, th)
	require.Len(t, r.Summary.CriticalIssues, 1)
	assert.Equal(t, "Aggregate CPU usage (60.0%) exceeds single core", r.Summary.CriticalIssues[0])
}

func TestNewMeta(t *testing.T) {
	now := time.Now()
	m := NewMeta(now, "host", "os")
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, now, m.Timestamp)
	assert.NotEqual(t, m.RunID, NewMeta(now, "host", "os").RunID)
}

func TestFindings_Sources(t *testing.T) {
	p := model.ProcessReport{
		Trace:           &model.TraceResult{Diagnoses: []model.Diagnosis{diag("t", model.SeverityLow)}},
		FileDescriptors: &model.DescriptorResult{Diagnoses: []model.Diagnosis{diag("f", model.SeverityLow)}},
		Sample:          &model.SampleResult{Diagnoses: []model.Diagnosis{diag("s", model.SeverityLow)}},
		Diagnoses:       []model.Diagnosis{diag("c", model.SeverityLow)},
	}

	var got []string
	for _, f := range Findings(p) {
		got = append(got, f.Source+":"+f.Issue)
	}
	assert.Equal(t, []string{"sample:s", "file_descriptors:f", "trace:t", "custom:c"}, got)
	assert.Empty(t, Findings(model.ProcessReport{}))
}
