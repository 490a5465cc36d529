// Package flamegraph turns trace telemetry into a folded-stack file and a
// rendered SVG flame graph.
//
// Each syscall in the summary becomes one weighted stack
//
//	<root>;<category>;<syscall> <count>
//
// and each recorded I/O operation adds
//
//	<root>;<category>;<syscall>;<target> 1
//
// where target is the operation's path (tail-truncated) or "fd:<n>". The
// category comes from a fixed table and groups syscalls into file,
// network, memory, process, event, time, ipc, and other.
//
// The folded file uses the same format flamegraph.pl and speedscope read,
// so it can be re-rendered with external tooling. The SVG is rendered
// here with no external dependency.
package flamegraph
