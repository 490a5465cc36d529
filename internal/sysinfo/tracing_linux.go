//go:build linux

package sysinfo

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/features"
	"github.com/cilium/ebpf/rlimit"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// KernelTracing reports whether kprobe eBPF programs can be loaded by this
// process.
func KernelTracing() model.TracingCapability {
	c := model.TracingCapability{Facility: TracingFacility}
	if err := rlimit.RemoveMemlock(); err != nil {
		c.Reason = fmt.Sprintf("remove memlock rlimit: %v", err)
		return c
	}
	if err := features.HaveProgramType(ebpf.Kprobe); err != nil {
		c.Reason = err.Error()
		return c
	}
	c.Available = true
	return c
}
