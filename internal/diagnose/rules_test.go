package diagnose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
)

func TestNewEnv(t *testing.T) {
	rec := model.ProcessRecord{PID: 42, CPU: 97.5, Mem: 2.5, RSSKB: 2048}
	rep := model.ProcessReport{
		Sample:          &model.SampleResult{ThreadCount: 12},
		FileDescriptors: &model.DescriptorResult{TotalFDs: 300, WatchedPathCount: 7},
		Trace: &model.TraceResult{
			Method: model.MethodPrimaryTracer,
			SyscallSummary: []model.SyscallRecord{
				{Name: "read", Count: 10, Errors: 2},
				{Name: "kevent", Count: 5, Errors: 1},
			},
			IOOperations:      make([]model.IOOperation, 4),
			NetworkOperations: make([]model.NetworkOperation, 1),
		},
	}

	env := NewEnv(rec, rep)
	assert.Equal(t, Env{
		PID:           42,
		CPU:           97.5,
		Mem:           2.5,
		RSSKB:         2048,
		Threads:       12,
		TotalFDs:      300,
		WatchedPaths:  7,
		Syscalls:      map[string]int{"read": 10, "kevent": 5},
		SyscallErrors: 3,
		IOOps:         4,
		NetOps:        1,
		Method:        "primary-tracer",
	}, env)
}

func TestNewEnv_NoSubResults(t *testing.T) {
	env := NewEnv(model.ProcessRecord{PID: 1}, model.ProcessReport{})
	assert.Equal(t, 1, env.PID)
	assert.Zero(t, env.Threads)
	assert.NotNil(t, env.Syscalls)
}

func TestRuleSet_Evaluate(t *testing.T) {
	specs := []config.RuleSpec{
		{Name: "Hot And Fat", Severity: "high", When: `cpu > 90 && rss_kb > 1024`, Description: "busy and large", Remedy: "restart"},
		{Name: "Many Reads", Severity: "medium", When: `syscalls["read"] > 5`},
		{Name: "Never", Severity: "low", When: `threads > 1000`},
	}
	rs, err := NewRuleSet(specs, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())

	env := Env{CPU: 95, RSSKB: 4096, Syscalls: map[string]int{"read": 6}}
	got := rs.Evaluate(env)
	assert.Equal(t, []model.Diagnosis{
		{Issue: "Hot And Fat", Severity: model.SeverityHigh, Description: "busy and large", Remedy: "restart"},
		{Issue: "Many Reads", Severity: model.SeverityMedium, Description: `Custom rule "Many Reads" matched`},
	}, got)
}

func TestRuleSet_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		when string
	}{
		{"syntax", `cpu >`},
		{"unknown variable", `bogus > 1`},
		{"not boolean", `cpu + 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet([]config.RuleSpec{{Name: "r", Severity: "low", When: tt.when}}, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"r"`)
		})
	}
}

func TestRuleSet_RuntimeErrorSkipsRule(t *testing.T) {
	specs := []config.RuleSpec{
		{Name: "Broken", Severity: "high", When: `int(method) > 0`},
		{Name: "Fine", Severity: "low", When: `pid == 7`},
	}
	rs, err := NewRuleSet(specs, zap.NewNop())
	require.NoError(t, err)

	got := rs.Evaluate(Env{PID: 7, Method: "not-a-number"})
	assert.Equal(t, []string{"Fine"}, issues(got))
}

func TestRuleSet_Nil(t *testing.T) {
	var rs *RuleSet
	assert.Zero(t, rs.Len())
	assert.Nil(t, rs.Evaluate(Env{}))
}
