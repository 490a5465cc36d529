package traceparse

import (
	"net"
	"regexp"
	"strconv"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// NetworkSyscalls is the allow-list of socket-oriented syscalls.
var NetworkSyscalls = map[string]struct{}{
	"socket": {}, "connect": {}, "bind": {}, "listen": {}, "accept": {},
	"send": {}, "recv": {}, "sendto": {}, "recvfrom": {}, "sendmsg": {}, "recvmsg": {},
}

var (
	hostPortRe   = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{1,3}){3}):(\d{1,5})\b`)
	sockaddrPort = regexp.MustCompile(`sin_port=htons\((\d{1,5})\)`)
	sockaddrAddr = regexp.MustCompile(`inet_addr\("(\d{1,3}(?:\.\d{1,3}){3})"\)`)
)

type netMatcher struct {
	calls callMatcher
}

// Match parses one allow-listed network syscall line.
func (m netMatcher) Match(line string) (model.NetworkOperation, bool) {
	c, ok := m.calls.Match(line)
	if !ok {
		return model.NetworkOperation{}, false
	}
	return networkOperation(c)
}

// networkOperation narrows a parsed call to a network operation.
func networkOperation(c call) (model.NetworkOperation, bool) {
	if _, ok := NetworkSyscalls[c.Name]; !ok {
		return model.NetworkOperation{}, false
	}

	op := model.NetworkOperation{
		Syscall:   c.Name,
		FD:        c.descriptor(),
		LatencyUS: c.LatencyUS,
	}
	if c.Name == "socket" && c.HasValue && c.Value >= 0 {
		op.FD = int(c.Value)
	}
	if _, ok := transferSyscalls[c.Name]; ok {
		op.Bytes = c.byteCount()
	}
	op.Address, op.Port = endpoint(c.Args)
	return op, true
}

// endpoint finds a dotted-quad address and port in syscall arguments, either
// as "a.b.c.d:port" or as a sockaddr_in dump. Both are empty when absent.
func endpoint(args string) (string, int) {
	if m := hostPortRe.FindStringSubmatch(args); m != nil {
		if addr, port, ok := validEndpoint(m[1], m[2]); ok {
			return addr, port
		}
	}
	am := sockaddrAddr.FindStringSubmatch(args)
	pm := sockaddrPort.FindStringSubmatch(args)
	if am != nil && pm != nil {
		if addr, port, ok := validEndpoint(am[1], pm[1]); ok {
			return addr, port
		}
	}
	return "", 0
}

func validEndpoint(addr, port string) (string, int, bool) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return "", 0, false
	}
	p, err := strconv.Atoi(port)
	if err != nil || p > 65535 {
		return "", 0, false
	}
	return addr, p, true
}

// ParseNetworkOperations extracts allow-listed socket syscalls in input order.
func ParseNetworkOperations(text string) []model.NetworkOperation {
	var out []model.NetworkOperation
	for _, c := range scanCalls(text) {
		if op, ok := networkOperation(c); ok {
			out = append(out, op)
		}
	}
	return out
}
