// Package traceparse converts raw diagnostic tool output into typed records.
//
// Every parser is a pure function of its input text: lines that do not fit
// the expected shape are skipped, nothing is ever fatal, and the same input
// always yields the same output in the same order.
//
// Each record kind has its own matcher with a Match(line) method so the
// "skip unmatched line" behaviour can be exercised per format:
//
//   - callMatcher: "name(args) = result [Err#N] [time]" syscall lines,
//     shared by the summary, I/O, and network parsers
//   - unfinishedMatcher / resumedMatcher: the two halves of a call that
//     strace split across threads; scanCalls stitches them back together
//   - ioMatcher / netMatcher: allow-listed syscall families
//   - fileActivityMatcher: fallback filesystem-activity rows
//
// Syscall text may come from either output stream of a tracer, so callers
// pass the concatenation of both.
package traceparse
