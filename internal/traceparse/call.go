package traceparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// callRe matches one completed syscall line. An optional per-thread prefix
// ("[pid 12]", "123/0x4a2:", or a bare leading number) is tolerated. The
// result must be numeric or "?", which keeps column headers out.
var callRe = regexp.MustCompile(
	`^\s*(?:\[pid\s+\d+\]\s*|\d+/0x[0-9a-fA-F]+:\s*|\d+\s+)?([A-Za-z_][A-Za-z0-9_]*)\((.*)\)\s+=\s+(-?\d\S*|\?)(.*)$`)

// Threads interleaving under strace -f split a blocking call into an
// "<unfinished ...>" head and a "<... name resumed>" tail.
var (
	unfinishedRe = regexp.MustCompile(
		`^\s*(?:\[pid\s+(\d+)\]\s*|(\d+)\s+)?([A-Za-z_][A-Za-z0-9_]*)\((.*?)\s*<unfinished \.\.\.>\s*$`)
	resumedRe = regexp.MustCompile(
		`^\s*(?:\[pid\s+(\d+)\]\s*|(\d+)\s+)?<\.\.\.\s+([A-Za-z_][A-Za-z0-9_]*)\s+resumed>\s*(.*)$`)
)

var (
	bracketLatencyRe = regexp.MustCompile(`<(\d+(?:\.\d+)?)>\s*$`)
	trailingIntRe    = regexp.MustCompile(`\s(\d+)\s*$`)
)

// call is a parsed syscall line before it is narrowed to a record kind.
type call struct {
	Name      string
	Args      string
	Result    string
	Value     int64 // parsed Result; valid when HasValue
	HasValue  bool
	Failed    bool
	LatencyUS uint64
}

type callMatcher struct{}

// Match parses one syscall line.
func (callMatcher) Match(line string) (call, bool) {
	m := callRe.FindStringSubmatch(line)
	if m == nil {
		return call{}, false
	}

	c := call{
		Name:   m[1],
		Args:   m[2],
		Result: m[3],
	}
	if v, err := strconv.ParseInt(c.Result, 0, 64); err == nil {
		c.Value = v
		c.HasValue = true
	}

	rest := m[4]
	c.Failed = strings.Contains(rest, "Err#") || (c.HasValue && c.Value == -1)

	if lm := bracketLatencyRe.FindStringSubmatch(rest); lm != nil {
		if secs, err := strconv.ParseFloat(lm[1], 64); err == nil {
			c.LatencyUS = uint64(math.Round(secs * 1e6))
		}
	} else if lm := trailingIntRe.FindStringSubmatch(rest); lm != nil {
		if us, err := strconv.ParseUint(lm[1], 10, 64); err == nil {
			c.LatencyUS = us
		}
	}

	return c, true
}

// splitCall is one half of a call strace reported in two lines.
type splitCall struct {
	Thread string
	Name   string
	Text   string // argument head, or everything after the resumed marker
}

func (s splitCall) key() string { return s.Thread + "/" + s.Name }

type unfinishedMatcher struct{}

// Match parses an "<unfinished ...>" head line.
func (unfinishedMatcher) Match(line string) (splitCall, bool) {
	m := unfinishedRe.FindStringSubmatch(line)
	if m == nil {
		return splitCall{}, false
	}
	return splitCall{Thread: m[1] + m[2], Name: m[3], Text: m[4]}, true
}

type resumedMatcher struct{}

// Match parses a "<... name resumed>" tail line.
func (resumedMatcher) Match(line string) (splitCall, bool) {
	m := resumedRe.FindStringSubmatch(line)
	if m == nil {
		return splitCall{}, false
	}
	return splitCall{Thread: m[1] + m[2], Name: m[3], Text: m[4]}, true
}

// joinSplit rebuilds a complete call line from a resumed tail and the head
// recorded for the same thread, if any.
func joinSplit(head string, tail splitCall) string {
	args := strings.TrimSpace(head)
	rest := strings.TrimLeft(tail.Text, " ")
	if args != "" && !strings.HasPrefix(rest, ")") {
		args += " "
	}
	return tail.Name + "(" + args + rest
}

// scanCalls returns every syscall in text in completion order. Split calls
// are stitched back together per thread; a resumed tail without its head
// still counts, with the arguments it carries.
func scanCalls(text string) []call {
	var (
		calls      callMatcher
		unfinished unfinishedMatcher
		resumed    resumedMatcher
	)
	pending := make(map[string]string)

	var out []call
	for _, line := range lines(text) {
		if c, ok := calls.Match(line); ok {
			out = append(out, c)
			continue
		}
		if h, ok := unfinished.Match(line); ok {
			pending[h.key()] = h.Text
			continue
		}
		if r, ok := resumed.Match(line); ok {
			head := pending[r.key()]
			delete(pending, r.key())
			if c, ok := calls.Match(joinSplit(head, r)); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// firstArg returns the first comma-separated argument, trimmed.
func (c call) firstArg() string {
	arg, _, _ := strings.Cut(c.Args, ",")
	return strings.TrimSpace(arg)
}

// descriptor extracts a decimal or hex descriptor from the first argument,
// or -1 when the first argument is not a number.
func (c call) descriptor() int {
	v, err := strconv.ParseInt(c.firstArg(), 0, 64)
	if err != nil || v < 0 || v > math.MaxInt32 {
		return -1
	}
	return int(v)
}

// byteCount returns the call result as a byte count, clamped at zero.
func (c call) byteCount() int64 {
	if !c.HasValue || c.Value < 0 {
		return 0
	}
	return c.Value
}

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
