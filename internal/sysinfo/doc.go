// Package sysinfo collects host-wide observations for the report: memory
// state, host identity, and whether kernel tracing is usable.
//
// Memory is read from the platform tools (memory_pressure, vm_stat) when
// they exist and from gopsutil otherwise, so the report always carries a
// memory snapshot. Kernel tracing is checked with cilium/ebpf feature
// probes on Linux.
package sysinfo
