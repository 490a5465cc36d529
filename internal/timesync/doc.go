// Package timesync converts between ps elapsed-time strings and wall-clock
// times.
//
// ps reports how long a process has been running as "[[dd-]hh:]mm:ss".
// ParseElapsed turns that into a time.Duration, StartedAt anchors it to a
// reference time, and FormatElapsed produces the same shape for snapshots
// that were not read from ps.
package timesync
