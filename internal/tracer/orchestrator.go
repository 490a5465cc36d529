package tracer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/diagnose"
	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/timesync"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
	"github.com/mrzor/claude-diagnose/internal/traceparse"
)

const (
	// sampleGrace is added to the sampling duration before the sampler is
	// killed; the sampler normally exits on its own.
	sampleGrace = 10 * time.Second
	// descriptorTimeout bounds the descriptor listing.
	descriptorTimeout = 10 * time.Second
	// maxCommandLen caps the command shown in a process report.
	maxCommandLen = 100
)

// Options selects which steps Analyze runs.
type Options struct {
	// Deep enables descriptor analysis and any requested instrumentation
	Deep           bool
	Sample         bool
	SampleDuration time.Duration
	Trace          bool
	TraceDuration  time.Duration
	Focus          config.Focus
	// TempDir holds sample artifacts; empty means os.TempDir()
	TempDir string
}

// OptionsFromConfig maps command-line configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Deep:           cfg.Deep,
		Sample:         cfg.Sample,
		SampleDuration: cfg.SampleDuration,
		Trace:          cfg.Trace,
		TraceDuration:  cfg.TraceDuration,
		Focus:          cfg.TraceFocus,
	}
}

// Orchestrator runs the instrumentation steps for one process at a time.
type Orchestrator struct {
	opts       Options
	runner     toolrun.Runner
	tools      Toolset
	thresholds config.Thresholds
	rules      *diagnose.RuleSet
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator. rules may be nil.
func NewOrchestrator(opts Options, runner toolrun.Runner, tools Toolset, thresholds config.Thresholds,
	rules *diagnose.RuleSet, logger *zap.Logger) *Orchestrator {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Focus == "" {
		opts.Focus = config.FocusGeneral
	}
	return &Orchestrator{
		opts:       opts,
		runner:     runner,
		tools:      tools,
		thresholds: thresholds,
		rules:      rules,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze builds the report entry for one process, running every step the
// options enable. It never fails; step failures are recorded on the
// corresponding sub-result.
func (o *Orchestrator) Analyze(ctx context.Context, rec model.ProcessRecord) model.ProcessReport {
	rep := model.ProcessReport{
		PID:       rec.PID,
		PPID:      rec.PPID,
		CPU:       rec.CPU,
		Mem:       rec.Mem,
		RSSMB:     rec.RSSKB / 1024,
		State:     rec.State,
		Elapsed:   rec.Elapsed,
		Command:   truncate(rec.Command, maxCommandLen),
		Diagnoses: []model.Diagnosis{},
	}
	if started, err := timesync.StartedAt(o.now(), rec.Elapsed); err == nil {
		rep.StartedAt = started.UTC().Format(time.RFC3339)
	}

	if o.opts.Deep {
		if o.opts.Sample {
			o.logger.Info("sampling process", zap.Int("pid", rec.PID), zap.Duration("duration", o.opts.SampleDuration))
			rep.Sample = o.Sample(ctx, rec.PID)
		}

		o.logger.Debug("listing descriptors", zap.Int("pid", rec.PID))
		rep.FileDescriptors = o.Descriptors(ctx, rec.PID)

		if o.opts.Trace {
			o.logger.Info("tracing process", zap.Int("pid", rec.PID),
				zap.String("focus", string(o.opts.Focus)), zap.Duration("duration", o.opts.TraceDuration))
			rep.Trace = o.Trace(ctx, rec.PID)
		}
	}

	rep.Diagnoses = append(rep.Diagnoses, o.rules.Evaluate(diagnose.NewEnv(rec, rep))...)
	return rep
}

// SamplePath is the artifact path used when sampling pid.
func (o *Orchestrator) SamplePath(pid int) string {
	return filepath.Join(o.opts.TempDir, fmt.Sprintf("claude_sample_%d.txt", pid))
}

// Sample records a stack sample of pid into its artifact and analyses it.
func (o *Orchestrator) Sample(ctx context.Context, pid int) *model.SampleResult {
	result := &model.SampleResult{
		PID:          pid,
		HotFunctions: []model.HotFunction{},
		Diagnoses:    []model.Diagnosis{},
	}
	file := o.SamplePath(pid)

	argv := expand(o.tools.Sampler, vars{PID: pid, Seconds: seconds(o.opts.SampleDuration), File: file})
	res := o.runner.Run(ctx, o.opts.SampleDuration+sampleGrace, argv...)
	if !res.Success {
		result.Error = res.ErrorText()
		o.logger.Warn("sampler failed", zap.Int("pid", pid), zap.String("error", result.Error))
		return result
	}

	if err := captureStdout(file, res.Stdout); err != nil {
		result.Error = err.Error()
		o.logger.Warn("sample artifact not written", zap.Int("pid", pid), zap.Error(err))
		return result
	}

	content, err := os.ReadFile(file)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read sample file: %v", err)
		o.logger.Warn("sample artifact unreadable", zap.Int("pid", pid), zap.Error(err))
		return result
	}

	text := string(content)
	parsed := traceparse.ParseStackSample(text)
	result.Success = true
	result.SampleFile = file
	result.ThreadCount = parsed.ThreadCount
	result.HotFunctions = nonNil(parsed.HotFunctions)
	result.Diagnoses = nonNil(diagnose.ClassifySample(text, o.thresholds))
	return result
}

// captureStdout saves sampler stdout to file when the sampler did not create
// the file itself.
func captureStdout(file, stdout string) error {
	if _, err := os.Stat(file); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat sample file: %w", err)
	}
	if err := os.WriteFile(file, []byte(stdout), 0o600); err != nil {
		return fmt.Errorf("failed to write sample file: %w", err)
	}
	return nil
}

// Descriptors lists and classifies the open descriptors of pid.
func (o *Orchestrator) Descriptors(ctx context.Context, pid int) *model.DescriptorResult {
	result := &model.DescriptorResult{
		PID:                pid,
		ByType:             map[string]int{},
		WatchedPaths:       []string{},
		NetworkConnections: []model.NetworkConnection{},
		Diagnoses:          []model.Diagnosis{},
	}

	res := o.runner.Run(ctx, descriptorTimeout, expand(o.tools.Descriptors, vars{PID: pid})...)
	// lsof exits non-zero when some descriptors could not be resolved but
	// still prints the rest
	if !res.Success && strings.TrimSpace(res.Stdout) == "" {
		result.Error = res.ErrorText()
		o.logger.Warn("descriptor listing failed", zap.Int("pid", pid), zap.String("error", result.Error))
		return result
	}

	d := traceparse.ParseDescriptors(res.Stdout)
	result.TotalFDs = d.Total
	result.ByType = d.ByType
	result.WatchedPaths = d.WatchedPaths
	result.WatchedPathCount = d.WatchedCount
	result.NetworkConnections = d.Network
	result.Diagnoses = nonNil(diagnose.ClassifyDescriptors(d.Total, d.WatchedCount, o.thresholds))
	return result
}

// Trace probes tracer availability once, runs the selected tracer, and
// classifies the result.
func (o *Orchestrator) Trace(ctx context.Context, pid int) *model.TraceResult {
	primary := NewSyscallTracer(o.runner, o.tools, o.opts.Focus, o.opts.TraceDuration)
	fallback := NewFileActivityTracer(o.runner, o.tools, o.opts.Focus, o.opts.TraceDuration)
	prober := NewProber(o.runner, o.tools, o.logger)

	tracer, reason := SelectTracer(ctx, prober, primary, fallback, pid)
	if tracer.Method() == model.MethodFallbackTracer {
		o.logger.Warn("syscall tracer unavailable, falling back to file activity",
			zap.Int("pid", pid), zap.String("reason", reason))
	}

	result := tracer.Trace(ctx, pid)
	if result.Error != "" {
		o.logger.Warn("tracer failed", zap.Int("pid", pid),
			zap.String("method", string(result.Method)), zap.String("error", result.Error))
	}

	result.Diagnoses = nonNil(diagnose.ClassifySyscalls(result.SyscallSummary, o.thresholds))
	if result.Method == model.MethodFallbackTracer {
		result.FallbackReason = reason
		result.Diagnoses = append(result.Diagnoses, diagnose.FallbackNotice(reason))
	}
	return &result
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
