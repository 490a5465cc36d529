package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Focus selects which syscall families a trace session concentrates on.
type Focus string

const (
	FocusGeneral Focus = "general"
	FocusIO      Focus = "io"
	FocusNetwork Focus = "network"
)

// ParseFocus validates a -trace-focus value.
func ParseFocus(v string) (Focus, error) {
	switch Focus(strings.ToLower(strings.TrimSpace(v))) {
	case "", FocusGeneral:
		return FocusGeneral, nil
	case FocusIO, "i-o":
		return FocusIO, nil
	case FocusNetwork, "net":
		return FocusNetwork, nil
	default:
		return "", fmt.Errorf("invalid trace focus %q (expected general|io|network)", v)
	}
}

// ErrHelp is returned by ParseArgs when -h or -help was given.
var ErrHelp = flag.ErrHelp

// Config holds the parsed command-line configuration
type Config struct {
	// Deep enables descriptor analysis and any requested instrumentation
	Deep bool
	// Sample enables stack sampling (implies Deep)
	Sample bool
	// SampleDuration is how long the sampler observes each process
	SampleDuration time.Duration
	// PID restricts the run to a single process; zero means all candidates
	PID int
	// Trace enables syscall tracing (implies Deep)
	Trace bool
	// TraceFocus selects general, I/O, or network tracing
	TraceFocus Focus
	// TraceDuration caps each tracing session
	TraceDuration time.Duration
	// Flamegraph exports trace telemetry as folded stacks and SVG (implies Trace)
	Flamegraph bool
	// OutputPath is the requested flamegraph path; siblings share its base name
	OutputPath string
	// JSON switches the report to machine-readable output
	JSON bool
	// ConfigPath points to an optional YAML file with thresholds and rules
	ConfigPath string
	// HistoryPath points to an optional SQLite database that keeps past reports
	HistoryPath string
	// HistoryRecent lists that many stored runs instead of diagnosing
	HistoryRecent int
	// HistoryShow reprints the stored report of one run instead of diagnosing
	HistoryShow string
	// Verbose enables debug logging
	Verbose bool
	// ShowVersion prints version information and exits
	ShowVersion bool

	Settings *Settings
}

// ParseArgs parses command-line arguments and returns a Config.
// args[0] is the program name. Settings are loaded from ConfigPath and the
// environment once the flags are known.
func ParseArgs(args []string, usageOut io.Writer) (*Config, error) {
	if len(args) == 0 {
		return nil, errors.New("no arguments provided")
	}

	cfg := &Config{}
	var (
		sampleSecs int
		traceSecs  int
		focus      string
	)

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.BoolVar(&cfg.Deep, "deep", false, "perform deep analysis (descriptors, requested instrumentation)")
	fs.BoolVar(&cfg.Sample, "sample", false, "include stack sampling (implies -deep)")
	fs.IntVar(&sampleSecs, "sample-duration", 5, "sampling duration in seconds")
	fs.IntVar(&cfg.PID, "pid", 0, "analyze a specific PID only")
	fs.BoolVar(&cfg.Trace, "trace", false, "trace syscalls (implies -deep)")
	fs.StringVar(&focus, "trace-focus", string(FocusGeneral), "trace focus: general|io|network")
	fs.IntVar(&traceSecs, "trace-duration", 10, "tracing duration in seconds")
	fs.BoolVar(&cfg.Flamegraph, "flamegraph", false, "export a flamegraph of traced syscalls (implies -trace)")
	fs.StringVar(&cfg.OutputPath, "output", "flamegraph.svg", "flamegraph output path")
	fs.BoolVar(&cfg.JSON, "json", false, "output the report as JSON")
	fs.StringVar(&cfg.ConfigPath, "config", "", "YAML file with thresholds and custom rules")
	fs.StringVar(&cfg.HistoryPath, "history", "", "SQLite database to append the report to")
	fs.IntVar(&cfg.HistoryRecent, "history-recent", 0, "list the N most recent runs stored in -history and exit")
	fs.StringVar(&cfg.HistoryShow, "history-show", "", "print the stored report of a run ID from -history and exit")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if cfg.PID < 0 {
		return nil, fmt.Errorf("invalid pid %d", cfg.PID)
	}
	if cfg.HistoryRecent < 0 {
		return nil, fmt.Errorf("invalid history count %d", cfg.HistoryRecent)
	}
	if cfg.ReadsHistory() && cfg.HistoryPath == "" {
		return nil, errors.New("-history-recent and -history-show require -history")
	}
	if sampleSecs <= 0 {
		return nil, fmt.Errorf("sample duration must be positive, got %d", sampleSecs)
	}
	if traceSecs <= 0 {
		return nil, fmt.Errorf("trace duration must be positive, got %d", traceSecs)
	}
	cfg.SampleDuration = time.Duration(sampleSecs) * time.Second
	cfg.TraceDuration = time.Duration(traceSecs) * time.Second

	f, err := ParseFocus(focus)
	if err != nil {
		return nil, err
	}
	cfg.TraceFocus = f

	// Flamegraphs need trace data; sampling and tracing need deep mode
	if cfg.Flamegraph {
		cfg.Trace = true
	}
	if cfg.Sample || cfg.Trace {
		cfg.Deep = true
	}

	if cfg.Flamegraph && strings.TrimSpace(cfg.OutputPath) == "" {
		return nil, errors.New("-flamegraph requires a non-empty -output path")
	}

	settings, err := LoadSettings(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	return cfg, nil
}

// ReadsHistory reports whether the run only reads stored history.
func (c *Config) ReadsHistory() bool {
	return c.HistoryRecent > 0 || c.HistoryShow != ""
}
