package procmeta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/timesync"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
)

// psTimeout bounds the process-table listing.
const psTimeout = 10 * time.Second

// PSCommand lists every process in the column order ParseTable expects.
var PSCommand = []string{"ps", "-Ao", "pid,ppid,pcpu,pmem,rss,vsz,state,etime,command"}

// Snapshot returns process-table text. It runs ps and, if that fails,
// renders the host process list in the same column layout.
func Snapshot(ctx context.Context, runner toolrun.Runner, logger *zap.Logger) (string, error) {
	res := runner.Run(ctx, psTimeout, PSCommand...)
	if res.Success {
		return res.Stdout, nil
	}
	logger.Warn("ps failed, falling back to host process list", zap.String("error", res.ErrorText()))

	text, err := hostSnapshot(ctx, time.Now())
	if err != nil {
		return "", fmt.Errorf("listing processes: %w", err)
	}
	return text, nil
}

// hostSnapshot renders gopsutil's process list as ps-shaped rows. Processes
// that vanish or deny access mid-listing are skipped.
func hostSnapshot(ctx context.Context, now time.Time) (string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("PID PPID %CPU %MEM RSS VSZ STAT ELAPSED COMMAND\n")
	for _, p := range procs {
		row, ok := hostRow(ctx, p, now)
		if !ok {
			continue
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func hostRow(ctx context.Context, p *process.Process, now time.Time) (string, bool) {
	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil || strings.TrimSpace(cmdline) == "" {
		return "", false
	}
	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		return "", false
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return "", false
	}
	// Best-effort columns: zero values still produce a parseable row
	cpu, _ := p.CPUPercentWithContext(ctx)    //nolint:errcheck // zero is an acceptable fallback
	mem, _ := p.MemoryPercentWithContext(ctx) //nolint:errcheck // zero is an acceptable fallback

	state := "?"
	if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 && st[0] != "" {
		state = strings.ToUpper(st[0][:1])
	}

	etime := "00:00"
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		etime = timesync.FormatElapsed(now.Sub(time.UnixMilli(created)))
	}

	return fmt.Sprintf("%d %d %.1f %.1f %d %d %s %s %s",
		p.Pid, ppid, cpu, mem, mi.RSS/1024, mi.VMS/1024, state, etime, cmdline), true
}
