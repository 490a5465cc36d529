// Package tracer runs the per-process instrumentation steps and assembles
// their typed results.
//
// For each candidate process the Orchestrator runs, strictly in this order
// and one process at a time:
//
//  1. stack sampling, when requested, into <tmp>/claude_sample_<pid>.txt
//  2. descriptor listing, whenever deep analysis is on
//  3. syscall tracing, when requested
//
// Tracing goes through a fallback ladder. A Prober makes one short trial
// invocation of the privileged tracer and looks for policy or privilege
// markers in its output. When none are found the SyscallTracer runs;
// otherwise the coarser FileActivityTracer takes over and the reason is
// recorded on the result. Both implement Tracer and return the same
// model.TraceResult shape.
//
// Every external program runs under a hard timeout. For the tracers the
// timeout is the normal way a session ends, so a timed-out run counts as a
// success. Failures degrade only the affected sub-result: the error text is
// stored on it and the rest of the report carries on.
//
// Sample artifacts are named per PID and are left in place after the run.
package tracer
