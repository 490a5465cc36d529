package traceparse

import (
	"regexp"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// IOSyscalls is the allow-list of file-oriented syscalls.
var IOSyscalls = map[string]struct{}{
	"read": {}, "write": {}, "pread": {}, "pwrite": {},
	"open": {}, "close": {}, "stat": {}, "fstat": {}, "lstat": {},
}

// transferSyscalls return a byte count; other calls report 0 bytes.
var transferSyscalls = map[string]struct{}{
	"read": {}, "write": {}, "pread": {}, "pwrite": {},
	"send": {}, "recv": {}, "sendto": {}, "recvfrom": {}, "sendmsg": {}, "recvmsg": {},
}

// pathSyscalls take a path as their first argument.
var pathSyscalls = map[string]struct{}{
	"open": {}, "stat": {}, "lstat": {},
}

var quotedRe = regexp.MustCompile(`"([^"]*)"`)

type ioMatcher struct {
	calls callMatcher
}

// Match parses one allow-listed I/O syscall line.
func (m ioMatcher) Match(line string) (model.IOOperation, bool) {
	c, ok := m.calls.Match(line)
	if !ok {
		return model.IOOperation{}, false
	}
	return ioOperation(c)
}

// ioOperation narrows a parsed call to an I/O operation.
func ioOperation(c call) (model.IOOperation, bool) {
	if _, ok := IOSyscalls[c.Name]; !ok {
		return model.IOOperation{}, false
	}

	op := model.IOOperation{
		Syscall:   c.Name,
		FD:        c.descriptor(),
		LatencyUS: c.LatencyUS,
	}
	if _, ok := pathSyscalls[c.Name]; ok {
		if qm := quotedRe.FindStringSubmatch(c.Args); qm != nil {
			op.Path = strings.TrimSuffix(qm[1], `\0`)
		}
	}
	// open hands back the new descriptor as its result
	if c.Name == "open" && op.FD < 0 && c.HasValue && c.Value >= 0 {
		op.FD = int(c.Value)
	}
	if _, ok := transferSyscalls[c.Name]; ok {
		op.Bytes = c.byteCount()
	}
	return op, true
}

// ParseIOOperations extracts allow-listed file syscalls in input order.
func ParseIOOperations(text string) []model.IOOperation {
	var out []model.IOOperation
	for _, c := range scanCalls(text) {
		if op, ok := ioOperation(c); ok {
			out = append(out, op)
		}
	}
	return out
}
