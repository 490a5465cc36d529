package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/storage"
)

// NoHistoryMessage is printed when the history database holds no runs.
const NoHistoryMessage = "No stored runs"

// HistoryEntry is one stored run with the diagnoses recorded for it.
type HistoryEntry struct {
	Run       storage.RunSummary        `json:"run"`
	Diagnoses []storage.StoredDiagnosis `json:"diagnoses"`
}

// WriteHistoryJSON writes entries as an indented JSON array.
func WriteHistoryJSON(w io.Writer, entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return nil
}

// PrintHistory writes one block per stored run, newest first.
func (p *Printer) PrintHistory(entries []HistoryEntry) error {
	s := p.style
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.w, s.dim.Render(NoHistoryMessage))
		return err
	}

	var b strings.Builder
	b.WriteString(s.bold.Render("RECENT RUNS") + "\n")
	for _, e := range entries {
		r := e.Run
		counts := fmt.Sprintf("%d critical, %d warnings", r.CriticalCount, r.WarningCount)
		if r.CriticalCount > 0 {
			counts = s.critical.Render(counts)
		}
		fmt.Fprintf(&b, "\n  %s %s\n", s.accent.Render(r.Timestamp), s.dim.Render(r.RunID))
		fmt.Fprintf(&b, "    %s | %d processes | CPU %.1f%% | %s\n", r.Hostname, r.ProcessCount, r.TotalCPU, counts)
		for _, d := range e.Diagnoses {
			tag := fmt.Sprintf("[%s]", strings.ToUpper(string(d.Severity)))
			if d.Severity == model.SeverityHigh {
				tag = s.critical.Render(tag)
			}
			fmt.Fprintf(&b, "    %s PID %d: %s %s\n", tag, d.PID, d.Issue, s.dim.Render("("+d.Source+")"))
		}
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}
