package sysinfo

// TracingFacility names the kernel tracing facility KernelTracing checks.
const TracingFacility = "ebpf-kprobe"
