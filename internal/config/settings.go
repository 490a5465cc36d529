package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Thresholds holds every numeric bound used by the classifier. Each rule
// fires only when its observed value is strictly greater than the bound.
type Thresholds struct {
	PollSampleCount    int           `yaml:"poll_sample_count" env:"DIAGNOSE_POLL_SAMPLE_COUNT"`
	PollSyscallCount   int           `yaml:"poll_syscall_count" env:"DIAGNOSE_POLL_SYSCALL_COUNT"`
	RunLoopSpinCount   int           `yaml:"run_loop_spin_count" env:"DIAGNOSE_RUN_LOOP_SPIN_COUNT"`
	OpenDescriptors    int           `yaml:"open_descriptors" env:"DIAGNOSE_OPEN_DESCRIPTORS"`
	WatchedPaths       int           `yaml:"watched_paths" env:"DIAGNOSE_WATCHED_PATHS"`
	IOErrors           int           `yaml:"io_errors" env:"DIAGNOSE_IO_ERRORS"`
	SlowSyscallLatency time.Duration `yaml:"slow_syscall_latency" env:"DIAGNOSE_SLOW_SYSCALL_LATENCY"`
	SlowSyscallCount   int           `yaml:"slow_syscall_count" env:"DIAGNOSE_SLOW_SYSCALL_COUNT"`
	FileMetadataOps    int           `yaml:"file_metadata_ops" env:"DIAGNOSE_FILE_METADATA_OPS"`
	AggregateCPU       float64       `yaml:"aggregate_cpu" env:"DIAGNOSE_AGGREGATE_CPU"`
}

// DefaultThresholds returns the built-in rule bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PollSampleCount:    50,
		PollSyscallCount:   1000,
		RunLoopSpinCount:   100,
		OpenDescriptors:    1000,
		WatchedPaths:       100,
		IOErrors:           100,
		SlowSyscallLatency: 10 * time.Millisecond,
		SlowSyscallCount:   10,
		FileMetadataOps:    5000,
		AggregateCPU:       100,
	}
}

// Patterns selects candidate processes by command line.
type Patterns struct {
	Include string `yaml:"include" env:"DIAGNOSE_INCLUDE_PATTERN"`
	Exclude string `yaml:"exclude" env:"DIAGNOSE_EXCLUDE_PATTERN"`
}

// DefaultPatterns matches Claude Code CLI processes and skips this tool,
// its sibling tracer, and grep pipelines looking for them.
func DefaultPatterns() Patterns {
	return Patterns{
		Include: `(?i)(claude|anthropic)`,
		Exclude: `(grep|claude-trace|claude-diagnose)`,
	}
}

// Compile returns the inclusion and exclusion regexps. The inclusion
// pattern is always matched case-insensitively.
func (p Patterns) Compile() (*regexp.Regexp, *regexp.Regexp, error) {
	inc := p.Include
	if !strings.HasPrefix(inc, "(?i)") {
		inc = "(?i)" + inc
	}
	include, err := regexp.Compile(inc)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	var exclude *regexp.Regexp
	if strings.TrimSpace(p.Exclude) != "" {
		exclude, err = regexp.Compile(p.Exclude)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}
	return include, exclude, nil
}

// RuleSpec is a user-defined classifier rule. When is an expr-lang boolean
// expression over per-process telemetry.
type RuleSpec struct {
	Name        string `yaml:"name"`
	Severity    string `yaml:"severity"`
	When        string `yaml:"when"`
	Description string `yaml:"description"`
	Remedy      string `yaml:"remedy"`
}

// Settings is everything that can come from the YAML file and environment.
type Settings struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Patterns   Patterns   `yaml:"patterns"`
	Rules      []RuleSpec `yaml:"rules"`
}

// DefaultSettings returns built-in thresholds and patterns with no custom rules.
func DefaultSettings() *Settings {
	return &Settings{
		Thresholds: DefaultThresholds(),
		Patterns:   DefaultPatterns(),
	}
}

// LoadSettings layers defaults, the optional YAML file at path, and
// DIAGNOSE_* environment variables, in that order of precedence.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := ParseSettingsYAML(b, s); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&s.Thresholds); err != nil {
		return nil, fmt.Errorf("failed to parse threshold overrides: %w", err)
	}
	if err := env.Parse(&s.Patterns); err != nil {
		return nil, fmt.Errorf("failed to parse pattern overrides: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSettingsYAML decodes b over s; keys absent from b keep their value.
func ParseSettingsYAML(b []byte, s *Settings) error {
	if err := yaml.Unmarshal(b, s); err != nil {
		return err
	}
	return nil
}

func (s *Settings) validate() error {
	if _, _, err := s.Patterns.Compile(); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for i := range s.Rules {
		r := &s.Rules[i]
		r.Name = strings.TrimSpace(r.Name)
		r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
		if r.Name == "" {
			return fmt.Errorf("rule %d: missing name", i)
		}
		if _, ok := seen[r.Name]; ok {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
		switch r.Severity {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("rule %q: invalid severity %q", r.Name, r.Severity)
		}
		if strings.TrimSpace(r.When) == "" {
			return fmt.Errorf("rule %q: missing when expression", r.Name)
		}
	}
	return nil
}
