//go:build !linux && !darwin

package sysinfo

import (
	"os"
	"runtime"
)

// Host returns the hostname and, lacking uname, the OS name.
func Host() (hostname, release string) {
	hostname, _ = os.Hostname() //nolint:errcheck // empty hostname is reported as-is
	return hostname, runtime.GOOS
}
