package traceparse

import (
	"sort"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// ParseSyscallSummary aggregates every syscall line into one record per
// name, sorted by count (descending) then name.
func ParseSyscallSummary(text string) []model.SyscallRecord {
	byName := make(map[string]*model.SyscallRecord)

	for _, c := range scanCalls(text) {
		rec := byName[c.Name]
		if rec == nil {
			rec = &model.SyscallRecord{Name: c.Name}
			byName[c.Name] = rec
		}
		rec.Count++
		rec.TotalTimeUS += c.LatencyUS
		if c.Failed {
			rec.Errors++
		}
	}

	out := make([]model.SyscallRecord, 0, len(byName))
	for _, rec := range byName {
		rec.AvgTimeUS = float64(rec.TotalTimeUS) / float64(rec.Count)
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
