// Package procmeta locates candidate processes in a process-table snapshot.
//
// The snapshot is plain text, one row per process:
//
//	pid ppid %cpu %mem rss vsz state etime command...
//
// ParseTable splits each row into eight fixed columns and keeps the rest of
// the line verbatim as the command, which may itself contain whitespace.
// Rows that are too short or carry unparsable numbers are dropped without
// error. Locate applies the inclusion and exclusion patterns, and
// RestrictPID narrows the result to one explicitly requested process.
//
// Snapshot produces the text, from ps when available and from the host
// process list otherwise, so both paths go through the same parser.
package procmeta
