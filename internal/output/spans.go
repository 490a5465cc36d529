package output

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/otel"
	"github.com/mrzor/claude-diagnose/internal/report"
)

// Span and event names.
const (
	RunSpanName     = "diagnose.run"
	ProcessSpanName = "diagnose.process"
	DiagnosisEvent  = "diagnosis"
	CriticalEvent   = "critical_issue"
	WarningEvent    = "warning"
)

// SpanExporter turns a finished report into spans: one root span for the
// run and one child span per process.
type SpanExporter struct {
	tracer trace.Tracer
}

// NewSpanExporter returns a SpanExporter emitting through tracer.
func NewSpanExporter(tracer trace.Tracer) *SpanExporter {
	return &SpanExporter{tracer: tracer}
}

// Export emits the spans for r. start and end bound the run; the root span's
// trace id is derived from the report's run id.
func (e *SpanExporter) Export(ctx context.Context, r model.Report, start, end time.Time) {
	ctx = otel.WithRunTraceID(ctx, r.RunID)

	ctx, root := e.tracer.Start(ctx, RunSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("diagnose.run_id", r.RunID),
			attribute.String("host.name", r.Hostname),
			attribute.String("os.version", r.OSVersion),
			attribute.Int("diagnose.process_count", r.ProcessCount),
			attribute.Float64("diagnose.total_cpu", r.Summary.TotalCPU),
			attribute.Float64("diagnose.total_mem", r.Summary.TotalMem),
			//nolint:gosec // RSS in MB fits int64
			attribute.Int64("diagnose.total_rss_mb", int64(r.Summary.TotalRSSMB)),
			attribute.String("system.memory.pressure", r.System.Memory.PressureLevel),
			attribute.Bool("system.tracing.available", r.System.Tracing.Available),
		),
	)

	for _, issue := range r.Summary.CriticalIssues {
		root.AddEvent(CriticalEvent, trace.WithTimestamp(end), trace.WithAttributes(attribute.String("issue", issue)))
	}
	for _, w := range r.Summary.Warnings {
		root.AddEvent(WarningEvent, trace.WithTimestamp(end), trace.WithAttributes(attribute.String("issue", w)))
	}

	for _, p := range r.Processes {
		e.exportProcess(ctx, p, start, end)
	}

	if n := len(r.Summary.CriticalIssues); n > 0 {
		root.SetStatus(codes.Error, fmt.Sprintf("%d critical issues", n))
	} else {
		root.SetStatus(codes.Ok, "")
	}
	root.End(trace.WithTimestamp(end))
}

func (e *SpanExporter) exportProcess(ctx context.Context, p model.ProcessReport, start, end time.Time) {
	attrs := []attribute.KeyValue{
		attribute.Int("process.pid", p.PID),
		attribute.Int("process.parent_pid", p.PPID),
		attribute.String("process.command", p.Command),
		attribute.String("process.state", p.State),
		attribute.Float64("process.cpu.percent", p.CPU),
		attribute.Float64("process.memory.percent", p.Mem),
		//nolint:gosec // RSS in MB fits int64
		attribute.Int64("process.memory.rss_mb", int64(p.RSSMB)),
	}
	if p.StartedAt != "" {
		attrs = append(attrs, attribute.String("process.started_at", p.StartedAt))
	}
	if s := p.Sample; s != nil {
		attrs = append(attrs,
			attribute.Bool("sample.success", s.Success),
			attribute.Int("sample.thread_count", s.ThreadCount),
		)
		if len(s.HotFunctions) > 0 {
			attrs = append(attrs, attribute.String("sample.top_function", s.HotFunctions[0].Function))
		}
	}
	if fd := p.FileDescriptors; fd != nil {
		attrs = append(attrs,
			attribute.Int("fd.total", fd.TotalFDs),
			attribute.Int("fd.watched_paths", fd.WatchedPathCount),
		)
	}
	if tr := p.Trace; tr != nil {
		attrs = append(attrs,
			attribute.String("trace.method", string(tr.Method)),
			attribute.String("trace.focus", tr.Focus),
			attribute.Bool("trace.success", tr.Success),
			attribute.Int("trace.syscalls", len(tr.SyscallSummary)),
		)
		if tr.FallbackReason != "" {
			attrs = append(attrs, attribute.String("trace.fallback_reason", tr.FallbackReason))
		}
	}

	_, span := e.tracer.Start(ctx, ProcessSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)

	for _, f := range report.Findings(p) {
		span.AddEvent(DiagnosisEvent,
			trace.WithTimestamp(end),
			trace.WithAttributes(
				attribute.String("issue", f.Issue),
				attribute.String("severity", string(f.Severity)),
				attribute.String("description", f.Description),
				attribute.String("remedy", f.Remedy),
				attribute.String("source", f.Source),
			),
		)
	}

	for i, msg := range subErrors(p) {
		span.SetAttributes(attribute.String(fmt.Sprintf("_tracing_error_%d", i), msg))
	}
	span.End(trace.WithTimestamp(end))
}

// subErrors collects the error strings of the sub-results that failed.
func subErrors(p model.ProcessReport) []string {
	var errs []string
	if p.Sample != nil && p.Sample.Error != "" {
		errs = append(errs, p.Sample.Error)
	}
	if p.FileDescriptors != nil && p.FileDescriptors.Error != "" {
		errs = append(errs, p.FileDescriptors.Error)
	}
	if p.Trace != nil && p.Trace.Error != "" {
		errs = append(errs, p.Trace.Error)
	}
	return errs
}
