package flamegraph

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// maxTargetLen caps the path frame of an I/O stack.
const maxTargetLen = 40

// Stack is one weighted folded stack.
type Stack struct {
	Frames []string
	Weight int
}

// String renders the stack as one folded line.
func (s Stack) String() string {
	return strings.Join(s.Frames, ";") + " " + strconv.Itoa(s.Weight)
}

// Root is the bottom frame for pid.
func Root(pid int) string {
	return fmt.Sprintf("pid_%d", pid)
}

// Stacks builds the weighted stacks of one trace: summary entries first,
// then one stack per I/O operation, both in trace order.
func Stacks(pid int, trace model.TraceResult) []Stack {
	root := Root(pid)
	out := make([]Stack, 0, len(trace.SyscallSummary)+len(trace.IOOperations))

	for _, rec := range trace.SyscallSummary {
		if rec.Count <= 0 {
			continue
		}
		out = append(out, Stack{
			Frames: []string{root, string(CategoryOf(rec.Name)), frame(rec.Name)},
			Weight: rec.Count,
		})
	}

	for _, op := range trace.IOOperations {
		out = append(out, Stack{
			Frames: []string{root, string(CategoryOf(op.Syscall)), frame(op.Syscall), target(op)},
			Weight: 1,
		})
	}
	return out
}

// Folded renders the stacks of one trace in folded format, one per line.
func Folded(pid int, trace model.TraceResult) string {
	return foldedText(Stacks(pid, trace))
}

func foldedText(stacks []Stack) string {
	var b strings.Builder
	for _, s := range stacks {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// target names the object of an I/O operation.
func target(op model.IOOperation) string {
	if op.Path == "" {
		return fmt.Sprintf("fd:%d", op.FD)
	}
	return frame(tail(op.Path, maxTargetLen))
}

// tail keeps the last n runes of s.
func tail(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

// frame strips the folded-format separators from a frame name.
func frame(s string) string {
	return strings.NewReplacer(";", "_", "\n", " ", "\r", " ").Replace(s)
}
