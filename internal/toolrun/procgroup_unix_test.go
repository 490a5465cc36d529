//go:build unix

package toolrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// exited reports whether pid no longer runs. A zombie still awaiting its
// reaper counts as exited.
func exited(pid int) bool {
	if err := unix.Kill(pid, 0); err != nil {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// state follows the parenthesised command name
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] == "Z"
}

func TestExecRunner_TimeoutKillsChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := fmt.Sprintf("sleep 30 & echo $! > %s; wait", pidFile)

	start := time.Now()
	res := NewExecRunner().Run(context.Background(), time.Second, "sh", "-c", script)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 10*time.Second)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return exited(pid) }, 5*time.Second, 50*time.Millisecond,
		"background child %d outlived the timed-out command", pid)
}
