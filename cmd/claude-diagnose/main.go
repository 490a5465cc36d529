// claude-diagnose finds running Claude Code CLI processes, instruments them
// with the platform's sampling and tracing tools, and reports likely causes
// of runaway CPU, descriptor leaks and syscall storms.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/diagnose"
	"github.com/mrzor/claude-diagnose/internal/flamegraph"
	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/otel"
	"github.com/mrzor/claude-diagnose/internal/output"
	"github.com/mrzor/claude-diagnose/internal/procmeta"
	"github.com/mrzor/claude-diagnose/internal/report"
	"github.com/mrzor/claude-diagnose/internal/storage"
	"github.com/mrzor/claude-diagnose/internal/sysinfo"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
	"github.com/mrzor/claude-diagnose/internal/tracer"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// newLogger builds the stderr console logger.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

// setupOTEL initializes the OTEL provider and returns a tracer and cleanup function.
// The tracer is nil when no OTLP endpoint is configured.
func setupOTEL(ctx context.Context, versionInfo string, logger *zap.Logger) (trace.Tracer, func(), error) {
	otelCfg, err := config.LoadOTELConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}
	if !otelCfg.Enabled() {
		return nil, func() {}, nil
	}

	tp, err := otel.InitProvider(ctx, otelCfg, versionInfo, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
			logger.Warn("error shutting down OTEL provider", zap.Error(err))
		}
	}

	return tp.Tracer("claude-diagnose"), cleanup, nil
}

// locate snapshots the process table and returns the candidate processes.
func locate(ctx context.Context, cfg *config.Config, runner toolrun.Runner, logger *zap.Logger) ([]model.ProcessRecord, error) {
	text, err := procmeta.Snapshot(ctx, runner, logger)
	if err != nil {
		return nil, err
	}

	include, exclude, err := cfg.Settings.Patterns.Compile()
	if err != nil {
		return nil, err
	}
	records := procmeta.Locate(text, procmeta.Matcher{Include: include, Exclude: exclude})
	logger.Debug("located candidate processes", zap.Int("count", len(records)))

	if cfg.PID > 0 {
		records, err = procmeta.RestrictPID(records, cfg.PID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// exportFlamegraphs writes artifacts for every successful trace and records
// the SVG path on the trace. Failures are logged and joined.
func exportFlamegraphs(processes []model.ProcessReport, outputPath string, logger *zap.Logger) error {
	traced := 0
	for _, p := range processes {
		if p.Trace != nil && p.Trace.Success {
			traced++
		}
	}
	if traced == 0 {
		logger.Warn("no successful trace, skipping flame graph")
		return nil
	}

	var errs []error
	for i := range processes {
		tr := processes[i].Trace
		if tr == nil || !tr.Success {
			continue
		}
		art, err := flamegraph.Export(processes[i].PID, *tr, outputPath, traced > 1)
		if err != nil {
			logger.Error("flame graph export failed", zap.Int("pid", processes[i].PID), zap.Error(err))
			errs = append(errs, fmt.Errorf("pid %d: %w", processes[i].PID, err))
			continue
		}
		tr.FlamegraphPath = art.SVG
		logger.Info("flame graph written", zap.Int("pid", processes[i].PID),
			zap.String("svg", art.SVG), zap.String("folded", art.Folded))
	}
	return errors.Join(errs...)
}

func printReport(w io.Writer, jsonOut bool, r model.Report) error {
	if jsonOut {
		return output.WriteJSON(w, r)
	}
	return output.NewPrinter(w).Print(r)
}

func printNoProcesses(w io.Writer, jsonOut bool) error {
	if jsonOut {
		return output.WriteNoProcessesJSON(w)
	}
	return output.NewPrinter(w).PrintNoProcesses()
}

func saveHistory(ctx context.Context, path string, r model.Report) error {
	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	if err := store.SaveReport(ctx, r); err != nil {
		return errors.Join(err, store.Close())
	}
	return store.Close()
}

// showHistory prints stored runs, or one stored report when a run ID was
// requested, without diagnosing anything.
func showHistory(ctx context.Context, w io.Writer, cfg *config.Config) error {
	store, err := storage.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cfg.HistoryShow != "" {
		rep, err := store.LoadReport(ctx, cfg.HistoryShow)
		if err != nil {
			return err
		}
		return printReport(w, cfg.JSON, rep)
	}

	runs, err := store.RecentRuns(ctx, cfg.HistoryRecent)
	if err != nil {
		return err
	}
	entries := make([]output.HistoryEntry, 0, len(runs))
	for _, rs := range runs {
		ds, err := store.Diagnoses(ctx, rs.RunID)
		if err != nil {
			return err
		}
		entries = append(entries, output.HistoryEntry{Run: rs, Diagnoses: ds})
	}

	if cfg.JSON {
		return output.WriteHistoryJSON(w, entries)
	}
	return output.NewPrinter(w).PrintHistory(entries)
}

func run() error {
	cfg, err := config.ParseArgs(os.Args, os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("claude-diagnose %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	logger := newLogger(os.Stderr, cfg.Verbose)
	defer func() { _ = logger.Sync() }()
	logger.Debug("starting claude-diagnose", zap.String("version", version), zap.String("commit", commit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ReadsHistory() {
		return showHistory(ctx, os.Stdout, cfg)
	}

	start := time.Now()
	runner := toolrun.NewExecRunner()

	records, err := locate(ctx, cfg, runner, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return printNoProcesses(os.Stdout, cfg.JSON)
	}

	rules, err := diagnose.NewRuleSet(cfg.Settings.Rules, logger)
	if err != nil {
		return err
	}

	orch := tracer.NewOrchestrator(tracer.OptionsFromConfig(cfg), runner, tracer.DefaultToolset(runtime.GOOS),
		cfg.Settings.Thresholds, rules, logger)

	processes := make([]model.ProcessReport, 0, len(records))
	for _, rec := range records {
		logger.Info("analyzing process", zap.Int("pid", rec.PID), zap.Float64("cpu", rec.CPU))
		processes = append(processes, orch.Analyze(ctx, rec))
	}

	var flameErr error
	if cfg.Flamegraph {
		flameErr = exportFlamegraphs(processes, cfg.OutputPath, logger)
	}

	hostname, release := sysinfo.Host()
	system := model.SystemInfo{
		Memory:  sysinfo.Memory(ctx, runner, logger),
		Tracing: sysinfo.KernelTracing(),
	}
	rep := report.Build(report.NewMeta(time.Now().UTC(), hostname, release), processes, system, cfg.Settings.Thresholds)

	if err := printReport(os.Stdout, cfg.JSON, rep); err != nil {
		return err
	}

	if cfg.HistoryPath != "" {
		if err := saveHistory(ctx, cfg.HistoryPath, rep); err != nil {
			logger.Warn("failed to save report history", zap.String("path", cfg.HistoryPath), zap.Error(err))
		}
	}

	versionInfo := fmt.Sprintf("%s (%s)", version, commit)
	spanTracer, cleanupOTEL, err := setupOTEL(ctx, versionInfo, logger)
	if err != nil {
		logger.Warn("span export disabled", zap.Error(err))
	} else {
		if spanTracer != nil {
			output.NewSpanExporter(spanTracer).Export(ctx, rep, start, time.Now())
		}
		cleanupOTEL()
	}

	if flameErr != nil {
		return fmt.Errorf("flame graph export failed: %w", flameErr)
	}
	return nil
}
