package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrzor/claude-diagnose/internal/model"
)

const (
	ruleWidth        = 67
	displayCommand   = 80
	displayHotFuncs  = 5
	displayFDTypes   = 5
	displaySyscalls  = 5
	busyProcessCPU   = 80
	activeProcessCPU = 30
	busyTotalCPU     = 50
)

type styles struct {
	bold     lipgloss.Style
	dim      lipgloss.Style
	section  lipgloss.Style
	critical lipgloss.Style
	warning  lipgloss.Style
	ok       lipgloss.Style
	accent   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		bold:     r.NewStyle().Bold(true),
		dim:      r.NewStyle().Faint(true),
		section:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4BEFE")),
		critical: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		warning:  r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		ok:       r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		accent:   r.NewStyle().Foreground(lipgloss.Color("#89DCEB")),
	}
}

// Printer writes the human-readable report.
type Printer struct {
	w     io.Writer
	style styles
}

// NewPrinter returns a Printer for w. Colors are only emitted when w is a
// terminal that supports them.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:     w,
		style: newStyles(lipgloss.NewRenderer(w)),
	}
}

// PrintNoProcesses reports that no candidate process was found.
func (p *Printer) PrintNoProcesses() error {
	_, err := fmt.Fprintln(p.w, p.style.warning.Render(NoProcessesError))
	return err
}

// Print writes the full report.
func (p *Printer) Print(r model.Report) error {
	var b strings.Builder
	s := p.style
	rule := s.bold.Render(strings.Repeat("═", ruleWidth))

	b.WriteString("\n" + rule + "\n")
	b.WriteString(s.bold.Render("  CLAUDE CODE CLI DIAGNOSTIC REPORT") + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "  %s %s\n", s.dim.Render("Generated:"), r.Timestamp)
	fmt.Fprintf(&b, "  %s %s | %s %s\n", s.dim.Render("Host:"), r.Hostname, s.dim.Render("OS:"), r.OSVersion)
	fmt.Fprintf(&b, "  %s %s\n\n", s.dim.Render("Run:"), r.RunID)

	p.summary(&b, r)
	p.issues(&b, r.Summary)

	b.WriteString("\n" + s.bold.Render("PROCESS DETAILS") + "\n")
	for _, proc := range r.Processes {
		p.process(&b, proc)
	}

	p.actions(&b, r, rule)

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) summary(b *strings.Builder, r model.Report) {
	s := p.style
	b.WriteString(s.bold.Render("SUMMARY") + "\n")
	fmt.Fprintf(b, "  Processes found: %d\n", r.ProcessCount)

	cpu := fmt.Sprintf("%.1f%%", r.Summary.TotalCPU)
	switch {
	case r.Summary.TotalCPU > 100:
		cpu = s.critical.Render(cpu)
	case r.Summary.TotalCPU > busyTotalCPU:
		cpu = s.warning.Render(cpu)
	default:
		cpu = s.ok.Render(cpu)
	}
	fmt.Fprintf(b, "  Total CPU: %s\n", cpu)
	fmt.Fprintf(b, "  Total Memory: %.1f%%\n", r.Summary.TotalMem)
	fmt.Fprintf(b, "  Total RSS: %d MB\n", r.Summary.TotalRSSMB)

	pressure := r.System.Memory.PressureLevel
	switch pressure {
	case "normal":
		pressure = s.ok.Render(pressure)
	case "warning":
		pressure = s.warning.Render(pressure)
	case "critical":
		pressure = s.critical.Render(pressure)
	}
	fmt.Fprintf(b, "  System Memory Pressure: %s\n", pressure)
	if r.System.Memory.FreeMemoryMB > 0 {
		fmt.Fprintf(b, "  Free Memory: %d MB\n", r.System.Memory.FreeMemoryMB)
	}

	tracing := "available"
	if !r.System.Tracing.Available {
		tracing = "unavailable"
		if r.System.Tracing.Reason != "" {
			tracing += " (" + r.System.Tracing.Reason + ")"
		}
	}
	if r.System.Tracing.Facility != "" {
		fmt.Fprintf(b, "  Kernel Tracing (%s): %s\n", r.System.Tracing.Facility, s.dim.Render(tracing))
	}
}

func (p *Printer) issues(b *strings.Builder, sum model.Summary) {
	s := p.style
	if len(sum.CriticalIssues) > 0 {
		b.WriteString("\n" + s.critical.Render("CRITICAL ISSUES") + "\n")
		for _, issue := range sum.CriticalIssues {
			fmt.Fprintf(b, "  %s %s\n", s.critical.Render("✗"), issue)
		}
	}
	if len(sum.Warnings) > 0 {
		b.WriteString("\n" + s.warning.Bold(true).Render("WARNINGS") + "\n")
		for _, w := range sum.Warnings {
			fmt.Fprintf(b, "  %s %s\n", s.warning.Render("⚠"), w)
		}
	}
}

func (p *Printer) process(b *strings.Builder, proc model.ProcessReport) {
	s := p.style
	b.WriteString("\n")

	cpu := fmt.Sprintf("%.1f%% CPU", proc.CPU)
	switch {
	case proc.CPU > busyProcessCPU:
		cpu = s.critical.Render(cpu)
	case proc.CPU > activeProcessCPU:
		cpu = s.warning.Render(cpu)
	}
	fmt.Fprintf(b, "  %s: %s, %.1f%% MEM, %d MB RSS, up %s\n",
		s.bold.Render(fmt.Sprintf("PID %d", proc.PID)), cpu, proc.Mem, proc.RSSMB, proc.Elapsed)
	fmt.Fprintf(b, "  %s\n", s.dim.Render(clip(proc.Command, displayCommand)))

	if sample := proc.Sample; sample != nil {
		if sample.Error != "" {
			fmt.Fprintf(b, "\n    %s: %s\n", s.accent.Render("Sample"), s.warning.Render(sample.Error))
		}
		if len(sample.HotFunctions) > 0 {
			fmt.Fprintf(b, "\n    %s (%d threads):\n", s.accent.Render("Hot Functions"), sample.ThreadCount)
			for i, hf := range sample.HotFunctions {
				if i == displayHotFuncs {
					break
				}
				fmt.Fprintf(b, "      %4d samples: %s\n", hf.Samples, hf.Function)
			}
		}
		p.diagnoses(b, "Diagnosis", sample.Diagnoses)
	}

	if fd := proc.FileDescriptors; fd != nil {
		fmt.Fprintf(b, "\n    %s: %d open\n", s.accent.Render("File Descriptors"), fd.TotalFDs)
		if fd.Error != "" {
			fmt.Fprintf(b, "      %s\n", s.warning.Render(fd.Error))
		}
		if types := topTypes(fd.ByType, displayFDTypes); types != "" {
			fmt.Fprintf(b, "      Types: %s\n", types)
		}
		if fd.WatchedPathCount > 0 {
			fmt.Fprintf(b, "      Watched paths: %d\n", fd.WatchedPathCount)
		}
		if len(fd.NetworkConnections) > 0 {
			fmt.Fprintf(b, "      Network: %d connections\n", len(fd.NetworkConnections))
		}
		p.diagnoses(b, "Issues", fd.Diagnoses)
	}

	if tr := proc.Trace; tr != nil {
		fmt.Fprintf(b, "\n    %s: %s, %s focus, %ds\n", s.accent.Render("Trace"), tr.Method, tr.Focus, tr.DurationSeconds)
		if tr.FallbackReason != "" {
			fmt.Fprintf(b, "      Fallback: %s\n", tr.FallbackReason)
		}
		if tr.Error != "" {
			fmt.Fprintf(b, "      %s\n", s.warning.Render(tr.Error))
		}
		for i, sc := range tr.SyscallSummary {
			if i == displaySyscalls {
				break
			}
			fmt.Fprintf(b, "      %-16s %7d calls  avg %8.1fµs  %d errors\n", sc.Name, sc.Count, sc.AvgTimeUS, sc.Errors)
		}
		if n := len(tr.IOOperations); n > 0 {
			fmt.Fprintf(b, "      I/O operations: %d\n", n)
		}
		if n := len(tr.NetworkOperations); n > 0 {
			fmt.Fprintf(b, "      Network operations: %d\n", n)
		}
		if tr.FlamegraphPath != "" {
			fmt.Fprintf(b, "      Flame graph: %s\n", tr.FlamegraphPath)
		}
		p.diagnoses(b, "Diagnosis", tr.Diagnoses)
	}

	p.diagnoses(b, "Custom Rules", proc.Diagnoses)
}

func (p *Printer) diagnoses(b *strings.Builder, title string, ds []model.Diagnosis) {
	if len(ds) == 0 {
		return
	}
	s := p.style
	fmt.Fprintf(b, "\n    %s:\n", s.accent.Render(title))
	for _, d := range ds {
		tag := fmt.Sprintf("[%s]", strings.ToUpper(string(d.Severity)))
		switch d.Severity {
		case model.SeverityHigh:
			tag = s.critical.Render(tag)
		case model.SeverityMedium:
			tag = s.warning.Render(tag)
		}
		fmt.Fprintf(b, "      %s %s\n", tag, d.Issue)
		if d.Description != "" {
			fmt.Fprintf(b, "        %s\n", s.dim.Render(d.Description))
		}
		if d.Remedy != "" {
			fmt.Fprintf(b, "        Remedy: %s\n", d.Remedy)
		}
	}
}

func (p *Printer) actions(b *strings.Builder, r model.Report, rule string) {
	s := p.style
	b.WriteString("\n" + rule + "\n")
	b.WriteString(s.bold.Render("RECOMMENDED ACTIONS") + "\n")

	if r.Summary.TotalCPU <= 100 && len(r.Summary.CriticalIssues) == 0 {
		fmt.Fprintf(b, "  %s No immediate action required\n", s.ok.Render("✓"))
		b.WriteString(rule + "\n\n")
		return
	}

	fmt.Fprintf(b, "\n  1. %s: Restart high-CPU sessions\n", s.accent.Render("Immediate"))
	b.WriteString("     $ kill -TERM <pid>  # Graceful termination\n")
	fmt.Fprintf(b, "\n  2. %s: Sample the highest-CPU process\n", s.accent.Render("Diagnose"))
	b.WriteString("     $ claude-diagnose -sample -pid <pid>\n")
	fmt.Fprintf(b, "\n  3. %s: Trace syscalls and render a flame graph\n", s.accent.Render("Trace"))
	b.WriteString("     $ sudo claude-diagnose -flamegraph -pid <pid>\n")
	fmt.Fprintf(b, "\n  4. %s: Watch CPU and descriptors over time\n", s.accent.Render("Monitor"))
	b.WriteString("     $ watch -n 5 claude-diagnose -history ~/.claude-diagnose/history.db\n")
	b.WriteString("     $ claude-diagnose -history ~/.claude-diagnose/history.db -history-recent 10\n")
	b.WriteString(rule + "\n\n")
}

// topTypes renders the n most common descriptor types, most frequent first.
func topTypes(byType map[string]int, n int) string {
	type kv struct {
		k string
		v int
	}
	entries := make([]kv, 0, len(byType))
	for k, v := range byType {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].v != entries[j].v {
			return entries[i].v > entries[j].v
		}
		return entries[i].k < entries[j].k
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s:%d", e.k, e.v)
	}
	return strings.Join(parts, ", ")
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
