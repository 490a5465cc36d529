package tracer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
	"github.com/mrzor/claude-diagnose/internal/traceparse"
)

// Tracer runs one tracing session against a process.
type Tracer interface {
	Method() model.TraceMethod
	Trace(ctx context.Context, pid int) model.TraceResult
}

// SyscallTracer is the primary tracer: full syscall telemetry.
type SyscallTracer struct {
	runner   toolrun.Runner
	argv     []string
	duration time.Duration
	focus    config.Focus
}

// NewSyscallTracer returns a primary tracer for one focus.
func NewSyscallTracer(runner toolrun.Runner, tools Toolset, focus config.Focus, duration time.Duration) *SyscallTracer {
	argv, ok := tools.Primary[focus]
	if !ok {
		argv = tools.Primary[config.FocusGeneral]
	}
	return &SyscallTracer{
		runner:   runner,
		argv:     argv,
		duration: duration,
		focus:    focus,
	}
}

// Method implements Tracer.
func (t *SyscallTracer) Method() model.TraceMethod { return model.MethodPrimaryTracer }

// Trace implements Tracer. The focus decides which operation lists are
// filled in; the syscall summary always is.
func (t *SyscallTracer) Trace(ctx context.Context, pid int) model.TraceResult {
	result := newResult(pid, t.duration, t.focus, t.Method())

	res := t.runner.Run(ctx, t.duration, expand(t.argv, vars{PID: pid, Seconds: seconds(t.duration)})...)
	result.Success = res.Success || res.TimedOut
	if !result.Success {
		result.Error = res.ErrorText()
	}

	text := res.Combined()
	result.SyscallSummary = nonNil(traceparse.ParseSyscallSummary(text))
	if t.focus == config.FocusGeneral || t.focus == config.FocusIO {
		result.IOOperations = nonNil(traceparse.ParseIOOperations(text))
	}
	if t.focus == config.FocusGeneral || t.focus == config.FocusNetwork {
		result.NetworkOperations = nonNil(traceparse.ParseNetworkOperations(text))
	}
	return result
}

// FileActivityTracer is the fallback tracer: file activity only, without
// descriptors, byte counts, or latencies.
type FileActivityTracer struct {
	runner   toolrun.Runner
	argv     []string
	duration time.Duration
	focus    config.Focus
}

// NewFileActivityTracer returns the fallback tracer.
func NewFileActivityTracer(runner toolrun.Runner, tools Toolset, focus config.Focus, duration time.Duration) *FileActivityTracer {
	return &FileActivityTracer{
		runner:   runner,
		argv:     tools.Fallback,
		duration: duration,
		focus:    focus,
	}
}

// Method implements Tracer.
func (t *FileActivityTracer) Method() model.TraceMethod { return model.MethodFallbackTracer }

// Trace implements Tracer.
func (t *FileActivityTracer) Trace(ctx context.Context, pid int) model.TraceResult {
	result := newResult(pid, t.duration, t.focus, t.Method())

	res := t.runner.Run(ctx, t.duration, expand(t.argv, vars{PID: pid, Seconds: seconds(t.duration)})...)
	result.Success = res.Success || res.TimedOut
	if !result.Success {
		result.Error = res.ErrorText()
	}
	result.IOOperations = nonNil(traceparse.ParseFileActivity(res.Combined()))
	return result
}

// probeTimeout bounds the capability probe. A probe still running when it
// fires has attached successfully.
const probeTimeout = 3 * time.Second

// unavailableMarkers are output fragments that mean the privileged tracer
// is blocked by platform policy or missing privileges. Matched
// case-insensitively.
var unavailableMarkers = []string{
	"system integrity protection",
	"dtrace requires additional privileges",
	"must be run as root",
	"operation not permitted",
	"permission denied",
}

// Prober checks whether the primary tracer can run.
type Prober struct {
	runner  toolrun.Runner
	argv    []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewProber returns a Prober using the toolset's probe command.
func NewProber(runner toolrun.Runner, tools Toolset, logger *zap.Logger) *Prober {
	return &Prober{
		runner:  runner,
		argv:    tools.Probe,
		timeout: probeTimeout,
		logger:  logger,
	}
}

// Probe runs the trial invocation once. It returns false and a reason when
// the tracer could not be launched or reported a blocking condition.
func (p *Prober) Probe(ctx context.Context, pid int) (bool, string) {
	res := p.runner.Run(ctx, p.timeout, expand(p.argv, vars{PID: pid})...)
	if !res.Started {
		return false, "tracer could not be started: " + res.ErrorText()
	}

	lower := strings.ToLower(res.Combined())
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return false, marker
		}
	}

	p.logger.Debug("tracer probe passed",
		zap.Int("pid", pid), zap.Bool("timed_out", res.TimedOut), zap.Bool("success", res.Success))
	return true, ""
}

// SelectTracer probes once and returns primary when it is available, or
// fallback together with the reason the primary was rejected.
func SelectTracer(ctx context.Context, prober *Prober, primary, fallback Tracer, pid int) (Tracer, string) {
	if ok, reason := prober.Probe(ctx, pid); !ok {
		return fallback, reason
	}
	return primary, ""
}

func newResult(pid int, d time.Duration, focus config.Focus, method model.TraceMethod) model.TraceResult {
	return model.TraceResult{
		PID:               pid,
		DurationSeconds:   seconds(d),
		Focus:             string(focus),
		Method:            method,
		SyscallSummary:    []model.SyscallRecord{},
		IOOperations:      []model.IOOperation{},
		NetworkOperations: []model.NetworkOperation{},
		Diagnoses:         []model.Diagnosis{},
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
