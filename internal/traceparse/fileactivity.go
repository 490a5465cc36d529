package traceparse

import (
	"regexp"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// fileActivityRe matches one filesystem-activity row:
// timestamp, operation, free-form middle, fixed-point elapsed seconds, then
// an optional wait marker and process tag.
var fileActivityRe = regexp.MustCompile(
	`^\s*(\d{1,2}:\d{2}:\d{2}(?:\.\d+)?)\s+([A-Za-z_][\w.]*)\s+(.*?)\s+(\d+\.\d+)(?:\s+W)?(?:\s+\S+)?\s*$`)

type fileActivityMatcher struct{}

// Match parses one fallback-tracer row. Rows on a bare descriptor (read,
// write, fsync) carry no path. Descriptor, byte count, and latency are not
// reported by this format.
func (fileActivityMatcher) Match(line string) (model.IOOperation, bool) {
	m := fileActivityRe.FindStringSubmatch(line)
	if m == nil {
		return model.IOOperation{}, false
	}
	return model.IOOperation{
		Syscall: m[2],
		FD:      -1,
		Path:    absolutePath(m[3]),
	}, true
}

// absolutePath returns the suffix of middle that starts at the first
// whitespace-delimited token beginning with '/'.
func absolutePath(middle string) string {
	for i := 0; i < len(middle); i++ {
		if middle[i] != '/' {
			continue
		}
		if i == 0 || middle[i-1] == ' ' || middle[i-1] == '\t' {
			return strings.TrimSpace(middle[i:])
		}
	}
	return ""
}

// ParseFileActivity extracts file operations from fallback-tracer output.
func ParseFileActivity(text string) []model.IOOperation {
	var m fileActivityMatcher
	var out []model.IOOperation
	for _, line := range lines(text) {
		if op, ok := m.Match(line); ok {
			out = append(out, op)
		}
	}
	return out
}
