//go:build linux || darwin

package sysinfo

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Host returns the hostname and kernel release. Either may be empty.
func Host() (hostname, release string) {
	hostname, _ = os.Hostname() //nolint:errcheck // empty hostname is reported as-is
	return hostname, kernelRelease()
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return utsString(uts.Release[:])
}

func utsString(b []byte) string {
	// Utsname fields are fixed-size NUL-terminated byte arrays.
	n := 0
	for ; n < len(b); n++ {
		if b[n] == 0 {
			break
		}
	}
	return strings.TrimSpace(string(b[:n]))
}
