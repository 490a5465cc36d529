package procmeta

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// fixedColumns precede the free-form command column.
const fixedColumns = 8

// ErrPIDNotFound is returned when an explicitly requested PID is not among
// the candidate processes.
var ErrPIDNotFound = errors.New("pid not found or not a candidate process")

// Matcher selects candidate processes by command line.
type Matcher struct {
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

// Matches reports whether command passes the inclusion pattern and does not
// hit the exclusion pattern. A nil Include matches everything.
func (m Matcher) Matches(command string) bool {
	if m.Include != nil && !m.Include.MatchString(command) {
		return false
	}
	if m.Exclude != nil && m.Exclude.MatchString(command) {
		return false
	}
	return true
}

// ParseTable parses process-table text into records, preserving input order.
func ParseTable(text string) []model.ProcessRecord {
	var out []model.ProcessRecord
	for _, line := range strings.Split(text, "\n") {
		rec, ok := parseRow(line)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Locate parses text and keeps the rows whose command m matches.
func Locate(text string, m Matcher) []model.ProcessRecord {
	var out []model.ProcessRecord
	for _, rec := range ParseTable(text) {
		if m.Matches(rec.Command) {
			out = append(out, rec)
		}
	}
	return out
}

// RestrictPID returns only the record for pid. A pid of zero means no
// restriction. An absent pid is ErrPIDNotFound, unlike an empty input which
// is simply an empty result.
func RestrictPID(records []model.ProcessRecord, pid int) ([]model.ProcessRecord, error) {
	if pid == 0 {
		return records, nil
	}
	for _, rec := range records {
		if rec.PID == pid {
			return []model.ProcessRecord{rec}, nil
		}
	}
	return nil, fmt.Errorf("pid %d: %w", pid, ErrPIDNotFound)
}

func parseRow(line string) (model.ProcessRecord, bool) {
	cols, rest, ok := splitFixed(strings.TrimSpace(line), fixedColumns)
	if !ok || rest == "" {
		return model.ProcessRecord{}, false
	}

	pid, err := strconv.Atoi(cols[0])
	if err != nil {
		return model.ProcessRecord{}, false
	}
	ppid, err := strconv.Atoi(cols[1])
	if err != nil {
		return model.ProcessRecord{}, false
	}
	cpu, err := strconv.ParseFloat(cols[2], 64)
	if err != nil {
		return model.ProcessRecord{}, false
	}
	mem, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return model.ProcessRecord{}, false
	}
	rss, err := strconv.ParseUint(cols[4], 10, 64)
	if err != nil {
		return model.ProcessRecord{}, false
	}
	vsz, err := strconv.ParseUint(cols[5], 10, 64)
	if err != nil {
		return model.ProcessRecord{}, false
	}

	return model.ProcessRecord{
		PID:     pid,
		PPID:    ppid,
		CPU:     cpu,
		Mem:     mem,
		RSSKB:   rss,
		VSZKB:   vsz,
		State:   cols[6],
		Elapsed: cols[7],
		Command: rest,
	}, true
}

// splitFixed takes n whitespace-separated tokens from the front of s and
// returns the remainder with leading whitespace removed but otherwise intact.
func splitFixed(s string, n int) ([]string, string, bool) {
	cols := make([]string, 0, n)
	for len(cols) < n {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return nil, "", false
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			cols = append(cols, s)
			s = ""
			continue
		}
		cols = append(cols, s[:end])
		s = s[end:]
	}
	return cols, strings.TrimLeftFunc(s, unicode.IsSpace), true
}
