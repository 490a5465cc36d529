// Package model defines the telemetry records, findings, and report shapes
// shared by every stage of the diagnosis pipeline.
package model

// Severity grades a Diagnosis. Only high and medium findings are promoted
// into the report summary.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TraceMethod names the instrumentation that produced a TraceResult.
type TraceMethod string

const (
	MethodSampler        TraceMethod = "sampler"
	MethodPrimaryTracer  TraceMethod = "primary-tracer"
	MethodFallbackTracer TraceMethod = "fallback-tracer"
)

// ProcessRecord is one row of the process-table snapshot.
type ProcessRecord struct {
	PID     int     `json:"pid"`
	PPID    int     `json:"ppid"`
	CPU     float64 `json:"cpu"`
	Mem     float64 `json:"mem"`
	RSSKB   uint64  `json:"rss_kb"`
	VSZKB   uint64  `json:"vsz_kb"`
	State   string  `json:"state"`
	Elapsed string  `json:"etime"`
	Command string  `json:"command"`
}

// SyscallRecord aggregates every call of one syscall name in a trace session.
type SyscallRecord struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	TotalTimeUS uint64  `json:"total_time_us"`
	AvgTimeUS   float64 `json:"avg_time_us"`
	Errors      int     `json:"errors"`
}

// IOOperation is a single file-oriented syscall event.
type IOOperation struct {
	Syscall   string `json:"syscall"`
	FD        int    `json:"fd"`
	Path      string `json:"path,omitempty"`
	Bytes     int64  `json:"bytes"`
	LatencyUS uint64 `json:"latency_us"`
}

// NetworkOperation is a single socket-oriented syscall event. Address and
// Port are both empty when the call carried no dotted-quad endpoint.
type NetworkOperation struct {
	Syscall   string `json:"syscall"`
	FD        int    `json:"fd"`
	Address   string `json:"address,omitempty"`
	Port      int    `json:"port,omitempty"`
	Bytes     int64  `json:"bytes"`
	LatencyUS uint64 `json:"latency_us"`
}

// Diagnosis is a single finding produced by the classifier.
type Diagnosis struct {
	Issue       string   `json:"issue"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Remedy      string   `json:"remedy"`
}

// HotFunction is a function identifier seen in a stack sample and how often.
type HotFunction struct {
	Function string `json:"function"`
	Samples  int    `json:"samples"`
}

// SampleResult is the outcome of stack sampling one process.
type SampleResult struct {
	PID          int           `json:"pid"`
	Success      bool          `json:"success"`
	SampleFile   string        `json:"sample_file,omitempty"`
	ThreadCount  int           `json:"thread_count"`
	HotFunctions []HotFunction `json:"hot_functions"`
	Diagnoses    []Diagnosis   `json:"diagnosis"`
	Error        string        `json:"error,omitempty"`
}

// NetworkConnection is a socket descriptor seen in the descriptor listing.
type NetworkConnection struct {
	Type       string `json:"conn_type"`
	Connection string `json:"connection"`
}

// DescriptorResult is the outcome of descriptor analysis for one process.
// WatchedPaths is capped for display; WatchedPathCount is the full count.
type DescriptorResult struct {
	PID                int                 `json:"pid"`
	TotalFDs           int                 `json:"total_fds"`
	ByType             map[string]int      `json:"by_type"`
	WatchedPaths       []string            `json:"watched_paths"`
	WatchedPathCount   int                 `json:"watched_path_count"`
	NetworkConnections []NetworkConnection `json:"network_connections"`
	Diagnoses          []Diagnosis         `json:"issues"`
	Error              string              `json:"error,omitempty"`
}

// TraceResult is the outcome of one syscall-tracing session. Method decides
// which record lists may be non-empty: a fallback-tracer result only ever
// carries IOOperations.
type TraceResult struct {
	PID               int                `json:"pid"`
	DurationSeconds   int                `json:"duration_seconds"`
	Focus             string             `json:"focus"`
	Success           bool               `json:"success"`
	Method            TraceMethod        `json:"method"`
	SyscallSummary    []SyscallRecord    `json:"syscall_summary"`
	IOOperations      []IOOperation      `json:"io_operations"`
	NetworkOperations []NetworkOperation `json:"network_operations"`
	Diagnoses         []Diagnosis        `json:"diagnosis"`
	Error             string             `json:"error,omitempty"`
	FallbackReason    string             `json:"fallback_reason,omitempty"`
	FlamegraphPath    string             `json:"flamegraph_path,omitempty"`
}

// ProcessReport is the per-process entry of a Report.
type ProcessReport struct {
	PID             int               `json:"pid"`
	PPID            int               `json:"ppid"`
	CPU             float64           `json:"cpu"`
	Mem             float64           `json:"mem"`
	RSSMB           uint64            `json:"rss_mb"`
	State           string            `json:"state"`
	Elapsed         string            `json:"etime"`
	StartedAt       string            `json:"started_at,omitempty"`
	Command         string            `json:"command"`
	Sample          *SampleResult     `json:"sample,omitempty"`
	FileDescriptors *DescriptorResult `json:"file_descriptors,omitempty"`
	Trace           *TraceResult      `json:"trace,omitempty"`
	Diagnoses       []Diagnosis       `json:"custom_diagnosis"`
}

// MemoryInfo is the system memory snapshot.
type MemoryInfo struct {
	PressureLevel string `json:"pressure_level"`
	FreeMemoryMB  uint64 `json:"free_memory_mb"`
	Source        string `json:"source"`
}

// TracingCapability reports whether a kernel tracing facility is usable.
type TracingCapability struct {
	Facility  string `json:"facility"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// SystemInfo groups host-wide observations.
type SystemInfo struct {
	Memory  MemoryInfo        `json:"memory"`
	Tracing TracingCapability `json:"tracing"`
}

// Summary holds report totals and the promoted findings.
type Summary struct {
	TotalCPU       float64  `json:"total_cpu"`
	TotalMem       float64  `json:"total_mem"`
	TotalRSSMB     uint64   `json:"total_rss_mb"`
	CriticalIssues []string `json:"critical_issues"`
	Warnings       []string `json:"warnings"`
}

// Report is the complete output of one diagnosis run.
type Report struct {
	RunID        string          `json:"run_id"`
	Timestamp    string          `json:"timestamp"`
	Hostname     string          `json:"hostname"`
	OSVersion    string          `json:"os_version"`
	ProcessCount int             `json:"process_count"`
	Processes    []ProcessReport `json:"processes"`
	System       SystemInfo      `json:"system"`
	Summary      Summary         `json:"summary"`
}
