package diagnose

import (
	"fmt"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/traceparse"
)

// Event-loop wait syscalls counted by the spinning rule.
var pollSyscalls = []string{"poll", "select", "kevent", "kevent64"}

// fileMetadataSyscalls are counted by the excessive file operations rule.
var fileMetadataSyscalls = map[string]struct{}{
	"stat": {}, "fstat": {}, "lstat": {},
	"stat64": {}, "fstat64": {}, "lstat64": {},
	"fstatat": {}, "fstatat64": {}, "newfstatat": {}, "statx": {},
	"access": {}, "faccessat": {}, "getattrlist": {}, "getattrlistbulk": {},
	"readlink": {}, "readlinkat": {},
}

// ClassifySample applies the marker rules to raw stack-sampler text.
func ClassifySample(text string, t config.Thresholds) []model.Diagnosis {
	var out []model.Diagnosis

	if strings.Contains(text, "FSEvents") || strings.Contains(text, "fseventsd") {
		out = append(out, model.Diagnosis{
			Issue:       "FSEvents Activity",
			Severity:    model.SeverityMedium,
			Description: "Process is actively watching filesystem events",
			Remedy:      "Check .claude/settings.json for watchPaths config",
		})
	}

	if strings.Count(text, "kevent") > t.PollSampleCount || strings.Count(text, "poll") > t.PollSampleCount {
		out = append(out, model.Diagnosis{
			Issue:       "High Polling Activity",
			Severity:    model.SeverityHigh,
			Description: "Process spinning on event polling (kevent/poll)",
			Remedy:      "Likely a bug in event loop - consider restarting",
		})
	}

	if strings.Contains(text, "GCRuntime") || strings.Contains(text, "Scavenge") || strings.Contains(text, "MarkCompact") {
		out = append(out, model.Diagnosis{
			Issue:       "Garbage Collection Pressure",
			Severity:    model.SeverityMedium,
			Description: "V8 garbage collector is running frequently",
			Remedy:      "Consider increasing --max-old-space-size",
		})
	}

	if strings.Contains(text, "CRYPTO") || strings.Contains(text, "SSL") || strings.Contains(text, "TLS") {
		out = append(out, model.Diagnosis{
			Issue:       "Cryptographic Operations",
			Severity:    model.SeverityLow,
			Description: "Process is performing crypto/TLS operations",
			Remedy:      "Normal if establishing connections",
		})
	}

	if strings.Count(text, "CFRunLoop") > t.RunLoopSpinCount {
		out = append(out, model.Diagnosis{
			Issue:       "CFRunLoop Spinning",
			Severity:    model.SeverityHigh,
			Description: "Core Foundation run loop is spinning excessively",
			Remedy:      "Indicates event loop issue - restart session",
		})
	}

	return out
}

// ClassifyDescriptors checks the descriptor totals of one process.
func ClassifyDescriptors(totalFDs, watchedPaths int, t config.Thresholds) []model.Diagnosis {
	var out []model.Diagnosis
	if totalFDs > t.OpenDescriptors {
		out = append(out, model.Diagnosis{
			Issue:       "High File Descriptor Count",
			Severity:    model.SeverityHigh,
			Description: fmt.Sprintf("Process has %d open file descriptors", totalFDs),
			Remedy:      "Possible fd leak - check for unclosed handles",
		})
	}
	if watchedPaths > t.WatchedPaths {
		out = append(out, model.Diagnosis{
			Issue:       "Excessive File Watching",
			Severity:    model.SeverityHigh,
			Description: fmt.Sprintf("Watching %d paths", watchedPaths),
			Remedy:      "Too many watched paths - add exclusions",
		})
	}
	return out
}

// ClassifySyscalls checks an aggregated syscall summary.
func ClassifySyscalls(summary []model.SyscallRecord, t config.Thresholds) []model.Diagnosis {
	var (
		out        []model.Diagnosis
		polls      int
		ioErrors   int
		metadataOp int
	)

	byName := make(map[string]model.SyscallRecord, len(summary))
	for _, rec := range summary {
		byName[rec.Name] = rec
		if _, ok := traceparse.IOSyscalls[rec.Name]; ok {
			ioErrors += rec.Errors
		}
		if _, ok := fileMetadataSyscalls[rec.Name]; ok {
			metadataOp += rec.Count
		}
	}
	for _, name := range pollSyscalls {
		polls += byName[name].Count
	}

	if polls > t.PollSyscallCount {
		out = append(out, model.Diagnosis{
			Issue:       "Event Loop Spinning",
			Severity:    model.SeverityHigh,
			Description: fmt.Sprintf("%d poll/select/kevent calls during the trace", polls),
			Remedy:      "Event loop is busy-waiting - restart the session",
		})
	}

	if ioErrors > t.IOErrors {
		out = append(out, model.Diagnosis{
			Issue:       "High I/O Error Rate",
			Severity:    model.SeverityMedium,
			Description: fmt.Sprintf("%d failed file syscalls during the trace", ioErrors),
			Remedy:      "Check for missing files or permission problems in watched directories",
		})
	}

	limitUS := float64(t.SlowSyscallLatency.Microseconds())
	for _, rec := range summary {
		if rec.AvgTimeUS > limitUS && rec.Count > t.SlowSyscallCount {
			out = append(out, model.Diagnosis{
				Issue:       "Slow Syscall: " + rec.Name,
				Severity:    model.SeverityMedium,
				Description: fmt.Sprintf("%s averaged %.1fms over %d calls", rec.Name, rec.AvgTimeUS/1000, rec.Count),
				Remedy:      "Look for slow disks, network filesystems, or lock contention",
			})
		}
	}

	if metadataOp > t.FileMetadataOps {
		out = append(out, model.Diagnosis{
			Issue:       "Excessive File Operations",
			Severity:    model.SeverityMedium,
			Description: fmt.Sprintf("%d file metadata lookups during the trace", metadataOp),
			Remedy:      "Likely a directory scan loop - narrow watched paths or add ignore patterns",
		})
	}

	return out
}

// FallbackNotice is emitted whenever the fallback tracer replaced the
// primary one.
func FallbackNotice(reason string) model.Diagnosis {
	desc := "Primary syscall tracer unavailable; only file activity was recorded"
	if reason != "" {
		desc = fmt.Sprintf("Primary syscall tracer unavailable (%s); only file activity was recorded", reason)
	}
	return model.Diagnosis{
		Issue:       "Fallback Tracer Used",
		Severity:    model.SeverityLow,
		Description: desc,
		Remedy:      "Run as root (or with tracing privileges) for full syscall telemetry",
	}
}
