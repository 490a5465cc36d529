//go:build !linux

package sysinfo

import (
	"runtime"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// KernelTracing reports eBPF as unavailable outside Linux.
func KernelTracing() model.TracingCapability {
	return model.TracingCapability{
		Facility: TracingFacility,
		Reason:   "unsupported platform: " + runtime.GOOS,
	}
}
